// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gsync

import (
	"hash"
	"io"

	"github.com/minio/sha256-simd"
	"github.com/pkg/errors"
)

// Signatures partitions r into ceil(L/blockSize) blocks and returns one
// BlockSignature per block, in ascending index order. It is the receiver
// side's "Signature Generator" (component A in spec §4): it never looks at
// the source file, only at the destination's existing content.
//
// Grounded on the teacher's gsync_server.go Signatures function: same
// read-a-block-at-a-time loop, generalized to return an ordered slice
// instead of a channel, since the wire protocol sends the whole signature
// set in one frame rather than streaming it block by block (spec §6).
func Signatures(r io.Reader, blockSize uint32) ([]BlockSignature, error) {
	if err := validateBlockSize(blockSize); err != nil {
		return nil, err
	}

	strongHash := sha256.New()
	buffer := make([]byte, blockSize)
	var sigs []BlockSignature
	var index uint32

	for {
		n, err := io.ReadFull(r, buffer)
		if n > 0 {
			sig, herr := signBlock(strongHash, buffer[:n], index)
			if herr != nil {
				return nil, herr
			}
			sigs = append(sigs, sig)
			index++
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(ErrIO, "reading block %d: %v", index, err)
		}
	}

	return sigs, nil
}

func signBlock(strongHash hash.Hash, block []byte, index uint32) (BlockSignature, error) {
	strongHash.Reset()
	if _, err := strongHash.Write(block); err != nil {
		return BlockSignature{}, errors.Wrapf(ErrIO, "hashing block %d: %v", index, err)
	}

	var strong [32]byte
	copy(strong[:], strongHash.Sum(nil))

	return BlockSignature{
		Index:  index,
		Length: uint32(len(block)),
		Weak:   newWindow(block).sum(),
		Strong: strong,
	}, nil
}

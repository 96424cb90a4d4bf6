// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package wire implements the binary protocol spec §6 describes for
// network-mode transfers: a one-byte tag, a four-byte little-endian length,
// and a payload, carrying the Hello/Signatures/Literal/Match/End/Error
// frames that let the delta engine (package gsync) run with the sender and
// receiver on different hosts.
//
// Framing style is grounded on the length-prefixed binary protocols found
// across the retrieval pack (jbreiding-rsync-go's proto package, gokr-rsync's
// rsyncd connection helpers): a fixed header followed by a payload, decoded
// with encoding/binary rather than a general-purpose serialization format,
// since spec §6 fully specifies the wire layout itself.
package wire

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/AsheeHuang/rsynx/gsync"
)

// Frame tags, per spec §6.
const (
	TagHello      byte = 0x01
	TagSignatures byte = 0x02
	TagLiteral    byte = 0x03
	TagMatch      byte = 0x04
	TagEnd        byte = 0x05
	TagError      byte = 0xFF
)

// MaxLiteralLen is the per-frame literal cap spec §6 mandates.
const MaxLiteralLen = 64 * 1024

// maxFrameLen guards against a corrupt or hostile length field forcing an
// unbounded allocation; it is generous relative to MaxLiteralLen and any
// plausible signature set.
const maxFrameLen = 64 * 1024 * 1024

const blockSignatureWireSize = 4 + 4 + 4 + 32 // index + length + weak + strong

// writeFrame writes the common tag|length|payload header followed by
// payload.
func writeFrame(w io.Writer, tag byte, payload []byte) error {
	var header [5]byte
	header[0] = tag
	binary.LittleEndian.PutUint32(header[1:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return errors.Wrapf(gsync.ErrNetwork, "writing frame header: %v", err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return errors.Wrapf(gsync.ErrNetwork, "writing frame payload: %v", err)
	}
	return nil
}

// readFrame reads one tag|length|payload frame. A clean close before any
// header byte arrives is reported as io.EOF verbatim so callers can
// distinguish "no more frames" from a mid-frame connection drop.
func readFrame(r io.Reader) (byte, []byte, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return 0, nil, io.EOF
		}
		return 0, nil, errors.Wrapf(gsync.ErrNetwork, "reading frame header: %v", err)
	}

	tag := header[0]
	length := binary.LittleEndian.Uint32(header[1:])
	if length > maxFrameLen {
		return 0, nil, errors.Wrapf(gsync.ErrNetwork, "frame too large: %d bytes", length)
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return 0, nil, errors.Wrapf(gsync.ErrNetwork, "reading frame payload: %v", err)
		}
	}
	return tag, payload, nil
}

// WriteHello sends the client's opening frame: the negotiated block size and
// the path it wants to sync on the server.
func WriteHello(w io.Writer, blockSize uint32, path string) error {
	if len(path) > 0xFFFF {
		return errors.Wrapf(gsync.ErrProtocol, "path too long: %d bytes", len(path))
	}
	payload := make([]byte, 4+2+len(path))
	binary.LittleEndian.PutUint32(payload[0:4], blockSize)
	binary.LittleEndian.PutUint16(payload[4:6], uint16(len(path)))
	copy(payload[6:], path)
	return writeFrame(w, TagHello, payload)
}

// ReadHello reads and decodes a Hello frame. It returns ErrProtocol if the
// next frame on the wire isn't a Hello, per spec §4.4's state machine: a
// frame received out of order is a fatal protocol error.
func ReadHello(r io.Reader) (blockSize uint32, path string, err error) {
	tag, payload, err := readFrame(r)
	if err != nil {
		return 0, "", err
	}
	if tag != TagHello {
		return 0, "", errors.Wrapf(gsync.ErrProtocol, "expected Hello frame, got tag 0x%02x", tag)
	}
	if len(payload) < 6 {
		return 0, "", errors.Wrapf(gsync.ErrProtocol, "truncated Hello payload")
	}
	blockSize = binary.LittleEndian.Uint32(payload[0:4])
	pathLen := int(binary.LittleEndian.Uint16(payload[4:6]))
	if len(payload) != 6+pathLen {
		return 0, "", errors.Wrapf(gsync.ErrProtocol, "Hello path length mismatch")
	}
	path = string(payload[6:])
	return blockSize, path, nil
}

// WriteSignatures sends the full signature set computed by the receiver
// (gsync.Signatures), plus the destination's length at signing time.
func WriteSignatures(w io.Writer, fileLen uint64, sigs []gsync.BlockSignature) error {
	payload := make([]byte, 4+8+len(sigs)*blockSignatureWireSize)
	binary.LittleEndian.PutUint32(payload[0:4], uint32(len(sigs)))
	binary.LittleEndian.PutUint64(payload[4:12], fileLen)

	off := 12
	for _, s := range sigs {
		binary.LittleEndian.PutUint32(payload[off:off+4], s.Index)
		binary.LittleEndian.PutUint32(payload[off+4:off+8], s.Length)
		binary.LittleEndian.PutUint32(payload[off+8:off+12], uint32(s.Weak))
		copy(payload[off+12:off+blockSignatureWireSize], s.Strong[:])
		off += blockSignatureWireSize
	}
	return writeFrame(w, TagSignatures, payload)
}

// ReadSignatures reads and decodes a Signatures frame.
func ReadSignatures(r io.Reader) (fileLen uint64, sigs []gsync.BlockSignature, err error) {
	tag, payload, err := readFrame(r)
	if err != nil {
		return 0, nil, err
	}
	if tag != TagSignatures {
		return 0, nil, errors.Wrapf(gsync.ErrProtocol, "expected Signatures frame, got tag 0x%02x", tag)
	}
	if len(payload) < 12 {
		return 0, nil, errors.Wrapf(gsync.ErrProtocol, "truncated Signatures payload")
	}

	count := binary.LittleEndian.Uint32(payload[0:4])
	fileLen = binary.LittleEndian.Uint64(payload[4:12])

	want := 12 + int(count)*blockSignatureWireSize
	if len(payload) != want {
		return 0, nil, errors.Wrapf(gsync.ErrProtocol, "Signatures payload length mismatch: got %d, want %d", len(payload), want)
	}

	sigs = make([]gsync.BlockSignature, count)
	off := 12
	for i := range sigs {
		sigs[i].Index = binary.LittleEndian.Uint32(payload[off : off+4])
		sigs[i].Length = binary.LittleEndian.Uint32(payload[off+4 : off+8])
		sigs[i].Weak = gsync.WeakSum(binary.LittleEndian.Uint32(payload[off+8 : off+12]))
		copy(sigs[i].Strong[:], payload[off+12:off+blockSignatureWireSize])
		off += blockSignatureWireSize
	}
	return fileLen, sigs, nil
}

// WriteError sends a fatal Error frame, used by either side to report a
// taxonomy failure before closing the connection.
func WriteError(w io.Writer, code uint16, msg string) error {
	if len(msg) > 0xFFFF {
		msg = msg[:0xFFFF]
	}
	payload := make([]byte, 2+2+len(msg))
	binary.LittleEndian.PutUint16(payload[0:2], code)
	binary.LittleEndian.PutUint16(payload[2:4], uint16(len(msg)))
	copy(payload[4:], msg)
	return writeFrame(w, TagError, payload)
}

// decodeError parses an Error frame's payload.
func decodeError(payload []byte) (code uint16, msg string, err error) {
	if len(payload) < 4 {
		return 0, "", errors.Wrapf(gsync.ErrProtocol, "truncated Error payload")
	}
	code = binary.LittleEndian.Uint16(payload[0:2])
	msgLen := int(binary.LittleEndian.Uint16(payload[2:4]))
	if len(payload) != 4+msgLen {
		return 0, "", errors.Wrapf(gsync.ErrProtocol, "Error payload length mismatch")
	}
	return code, string(payload[4:]), nil
}

// WriteInstructionFrame encodes a gsync.Instruction as a Literal, Match, or
// End frame.
func WriteInstructionFrame(w io.Writer, instr gsync.Instruction) error {
	switch instr.Kind {
	case gsync.InstructionLiteral:
		if len(instr.Data) > MaxLiteralLen {
			return errors.Wrapf(gsync.ErrProtocol, "literal too large: %d bytes", len(instr.Data))
		}
		return writeFrame(w, TagLiteral, instr.Data)
	case gsync.InstructionMatch:
		var payload [4]byte
		binary.LittleEndian.PutUint32(payload[:], instr.BlockIndex)
		return writeFrame(w, TagMatch, payload[:])
	case gsync.InstructionEnd:
		return writeFrame(w, TagEnd, nil)
	default:
		return errors.Wrapf(gsync.ErrProtocol, "unknown instruction kind %d", instr.Kind)
	}
}

// ReadInstructionFrame reads one Literal, Match, or End frame and decodes it
// into a gsync.Instruction. An Error frame is surfaced as an error rather
// than an instruction.
func ReadInstructionFrame(r io.Reader) (gsync.Instruction, error) {
	tag, payload, err := readFrame(r)
	if err != nil {
		return gsync.Instruction{}, err
	}

	switch tag {
	case TagLiteral:
		return gsync.Instruction{Kind: gsync.InstructionLiteral, Data: payload}, nil
	case TagMatch:
		if len(payload) != 4 {
			return gsync.Instruction{}, errors.Wrapf(gsync.ErrProtocol, "truncated Match payload")
		}
		return gsync.Instruction{Kind: gsync.InstructionMatch, BlockIndex: binary.LittleEndian.Uint32(payload)}, nil
	case TagEnd:
		return gsync.Instruction{Kind: gsync.InstructionEnd}, nil
	case TagError:
		code, msg, derr := decodeError(payload)
		if derr != nil {
			return gsync.Instruction{}, derr
		}
		return gsync.Instruction{}, errors.Wrapf(gsync.ErrProtocol, "remote error %d: %s", code, msg)
	default:
		return gsync.Instruction{}, errors.Wrapf(gsync.ErrProtocol, "unexpected frame tag 0x%02x", tag)
	}
}

// InstructionReader adapts a connection into a gsync.InstructionReader,
// decoding one frame per Next call.
type InstructionReader struct {
	R io.Reader
}

// Next implements gsync.InstructionReader.
func (ir InstructionReader) Next() (gsync.Instruction, error) {
	return ReadInstructionFrame(ir.R)
}

// InstructionWriterTo adapts a connection into a gsync.InstructionWriter,
// encoding one frame per call.
func InstructionWriterTo(w io.Writer) gsync.InstructionWriter {
	return func(instr gsync.Instruction) error {
		return WriteInstructionFrame(w, instr)
	}
}

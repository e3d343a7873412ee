package wire

import (
	"bufio"
	"bytes"
	"io"
)

// RawFrame is an undecoded packet: a packet id plus its raw payload bytes,
// as read off the wire after the outer length prefix has been stripped.
type RawFrame struct {
	ID      int32
	Payload []byte
}

func (f RawFrame) Reader() *bytes.Reader {
	return bytes.NewReader(f.Payload)
}

// FrameReader reads length-prefixed Minecraft packets from a stream.
// Compression and encryption are assumed to already be handled by conn
// (or not enabled at all); FrameReader only understands the
// VarInt-length-prefixed packet framing itself.
type FrameReader struct {
	br *bufio.Reader
}

func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{br: bufio.NewReader(r)}
}

func (fr *FrameReader) ReadFrame() (RawFrame, error) {
	length, err := ReadVarInt(fr.br)
	if err != nil {
		return RawFrame{}, err
	}
	if length < 0 {
		return RawFrame{}, io.ErrUnexpectedEOF
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(fr.br, body); err != nil {
		return RawFrame{}, err
	}
	bodyReader := bytes.NewReader(body)
	id, err := ReadVarInt(bodyReader)
	if err != nil {
		return RawFrame{}, err
	}
	rest := body[len(body)-bodyReader.Len():]
	payload := make([]byte, len(rest))
	copy(payload, rest)
	return RawFrame{ID: id, Payload: payload}, nil
}

// FrameWriter writes length-prefixed Minecraft packets to a stream.
type FrameWriter struct {
	w io.Writer
}

func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

func (fw *FrameWriter) WriteFrame(f RawFrame) error {
	var body bytes.Buffer
	if err := WriteVarInt(&body, f.ID); err != nil {
		return err
	}
	body.Write(f.Payload)

	var out bytes.Buffer
	if err := WriteVarInt(&out, int32(body.Len())); err != nil {
		return err
	}
	out.Write(body.Bytes())
	_, err := fw.w.Write(out.Bytes())
	return err
}

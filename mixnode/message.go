package mixnode

// Message is one unit the mix node buffers, shuffles, and flushes. A dummy
// has no data of its own: release pads it with zero bytes to the smallest
// size bucket, so dummies differ from real messages in content, and in
// size whenever a real message is larger than 512 bytes.
type Message struct {
	Data  []byte
	Dummy bool
}

// Pad normalizes Data's length to the nearest power-of-two bucket by
// appending zero bytes, recording the pre-pad length is the caller's
// responsibility (the onion layer already carries its own explicit
// length prefix, so padding here is purely size-bucket cover traffic).
func (m Message) Pad() Message {
	target := NormalizeSize(len(m.Data))
	if target == len(m.Data) {
		return m
	}
	padded := make([]byte, target)
	copy(padded, m.Data)
	return Message{Data: padded, Dummy: m.Dummy}
}

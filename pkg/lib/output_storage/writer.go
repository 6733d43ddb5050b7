package output_storage

// Write implements io.Writer for OutputStorage so it can be used directly as
// exec.Cmd Stdout/Stderr. It appends a copy of p because callers may reuse
// the buffer after Write returns.
//
// Behavior:
// - nil receiver: no-op, returns len(p), nil (consistent with other methods).
// - empty input: returns 0, nil.
func (s *OutputStorage) Write(p []byte) (int, error) {
	if s == nil {
		return len(p), nil
	}
	if len(p) == 0 {
		return 0, nil
	}

	cp := append([]byte(nil), p...)

	s.Append(cp)

	return len(p), nil
}

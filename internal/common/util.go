package common

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// Use it to drop plaintext passwords read from a terminal once they have been
// hashed.
//
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

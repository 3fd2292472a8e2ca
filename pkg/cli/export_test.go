package cli

import "io"

type SignOptions = signOptions

func NewSignOptions(secret, verify, curl, input string) SignOptions {
	return signOptions{secret: secret, verify: verify, curl: curl, input: input}
}

func RunSign(w io.Writer, r io.Reader, opts SignOptions) error {
	return runSign(w, r, opts)
}

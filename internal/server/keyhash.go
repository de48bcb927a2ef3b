package server

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/recipesync/internal/cryptox"
)

// PrintKeyHash reads an enrollment key from the first line of r and writes
// its bcrypt hash to w, for use as enrollment_key_hash.
func PrintKeyHash(r io.Reader, w io.Writer) error {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read key: %w", err)
	}

	hash, err := cryptox.HashEnrollmentKey(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, hash)
	return err
}

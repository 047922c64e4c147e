package param

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/san-kum/ctrlenv/internal/dynamo"
)

// Write serializes the set as TOML, one block per parameter: a comment line
// with the description followed by a single name = value assignment.
func (s *Set) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, p := range s.params {
		desc := strings.ReplaceAll(p.Description, "\n", " ")
		if _, err := fmt.Fprintf(bw, "#%s\n", desc); err != nil {
			return err
		}
		if err := toml.NewEncoder(bw).Encode(map[string]any{p.Name: p.Value}); err != nil {
			return fmt.Errorf("encode %s: %w", p.Name, err)
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (s *Set) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Decode reads a parameter file into a raw name -> value map without
// validating it against any set.
func Decode(r io.Reader) (map[string]any, error) {
	values := make(map[string]any)
	if _, err := toml.NewDecoder(r).Decode(&values); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrConfiguration, err)
	}
	return values, nil
}

func DecodeFile(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Read decodes a parameter file and overrides the set with its values. A key
// absent from the set fails with dynamo.ErrConfiguration.
func (s *Set) Read(r io.Reader) error {
	values, err := Decode(r)
	if err != nil {
		return err
	}
	return s.Override(values)
}

func (s *Set) ReadFile(path string) error {
	values, err := DecodeFile(path)
	if err != nil {
		return err
	}
	return s.Override(values)
}

package pipeline

import (
	"errors"
	"fmt"
	"os"

	"github.com/cgraph/cgraph/internal/lang"
)

var errPartialParse = errors.New("parse completed with error nodes")

func errUnsupportedLanguage(l lang.Language) error {
	return fmt.Errorf("no registered language spec for %q", l)
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

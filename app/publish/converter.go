package publish

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/lysyi3m/news-digest/app/digest"
)

// Converter runs an external e-book conversion tool as `<bin> <in> <out>`.
type Converter struct {
	bin     string
	timeout time.Duration
}

func NewConverter(bin string, timeout time.Duration) *Converter {
	return &Converter{
		bin:     bin,
		timeout: timeout,
	}
}

// Run blocks until the tool exits. Any failure is reported as a conversion error.
func (c *Converter) Run(ctx context.Context, in string, out string) error {
	start := time.Now()

	if c.bin == "" {
		return digest.Errorf(digest.ErrConversion, "convert", "no converter configured")
	}

	path, err := exec.LookPath(c.bin)
	if err != nil {
		return digest.Wrap(digest.ErrConversion, "convert", fmt.Errorf("converter %s not found: %w", c.bin, err))
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(timeoutCtx, path, in, out)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return digest.Wrap(digest.ErrConversion, "convert",
			fmt.Errorf("%s failed: %w: %s", c.bin, err, strings.TrimSpace(stderr.String())))
	}

	if _, err := os.Stat(out); err != nil {
		return digest.Wrap(digest.ErrConversion, "convert", fmt.Errorf("no output produced: %w", err))
	}

	slog.Info("Conversion completed", "input", in, "output", out, "duration", time.Since(start))
	return nil
}

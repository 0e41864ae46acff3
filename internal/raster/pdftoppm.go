package raster

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const (
	defaultBinary = "pdftoppm"
	defaultDPI    = 150
)

// PDFToPPM rasterizes single PDF pages by shelling out to poppler's
// pdftoppm, the platform-provided rendering engine.
type PDFToPPM struct {
	binary string
	dpi    int
}

func NewPDFToPPM(binary string, dpi int) *PDFToPPM {
	if binary == "" {
		binary = defaultBinary
	}
	if dpi <= 0 {
		dpi = defaultDPI
	}
	return &PDFToPPM{binary: binary, dpi: dpi}
}

func (r *PDFToPPM) Rasterize(ctx context.Context, path string, pageIndex int, scale float64) ([]byte, error) {
	if scale <= 0 {
		scale = 1
	}
	page := pageIndex + 1
	dpi := int(float64(r.dpi) * scale)

	dir, err := os.MkdirTemp("", "paperdex-raster-")
	if err != nil {
		return nil, fmt.Errorf("raster temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	args := []string{
		"-png",
		"-r", strconv.Itoa(dpi),
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-singlefile",
		path,
		prefix,
	}
	cmd := exec.CommandContext(ctx, r.binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		logutil.GetLogger(ctx).Warn("pdftoppm failed",
			zap.Int("page", page), zap.ByteString("output", out), zap.Error(err))
		return nil, fmt.Errorf("rasterize page %d: %w", page, err)
	}
	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("read rendered page %d: %w", page, err)
	}
	return data, nil
}

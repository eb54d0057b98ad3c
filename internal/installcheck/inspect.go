package installcheck

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/sassoftware/go-rpmutils"
	"github.com/schollz/progressbar/v3"

	"github.com/open-edge-platform/pkg-pipeline/internal/utils/logger"
)

// InspectResult describes one RPM artifact's header read.
type InspectResult struct {
	Path  string
	NEVRA string
	Error error
}

// VerifyResult holds the outcome of GPG-verifying one RPM.
type VerifyResult struct {
	Path     string
	OK       bool
	Duration time.Duration
	Error    error
}

// InspectAll reads the header of every RPM and returns the results in the
// same order as paths.
func InspectAll(paths []string, workers int) []InspectResult {
	results := make([]InspectResult, len(paths))
	runIndexed(len(paths), workers, func(idx int) {
		results[idx] = inspectOne(paths[idx])
	})
	return results
}

func inspectOne(path string) InspectResult {
	res := InspectResult{Path: path}

	f, err := os.Open(path)
	if err != nil {
		res.Error = fmt.Errorf("opening rpm: %w", err)
		return res
	}
	defer f.Close()

	hdr, err := rpmutils.ReadHeader(f)
	if err != nil {
		res.Error = fmt.Errorf("reading rpm header: %w", err)
		return res
	}
	nevra, err := hdr.GetNEVRA()
	if err != nil {
		res.Error = fmt.Errorf("reading NEVRA: %w", err)
		return res
	}
	res.NEVRA = nevra.String()
	return res
}

// VerifyAll GPG-checks every RPM against the keyring in parallel and
// returns results in the same order as paths.
func VerifyAll(paths []string, keyringPath string, workers int) []VerifyResult {
	log := logger.Logger()

	total := len(paths)
	results := make([]VerifyResult, total)

	bar := progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	runIndexed(total, workers, func(idx int) {
		rpmPath := paths[idx]
		bar.Describe("verifying " + filepath.Base(rpmPath))

		start := time.Now()
		err := verifySignature(rpmPath, keyringPath)

		if err != nil {
			log.Errorf("verification %s failed (key=%s): %v", rpmPath, keyringPath, err)
		}

		results[idx] = VerifyResult{
			Path:     rpmPath,
			OK:       err == nil,
			Duration: time.Since(start),
			Error:    err,
		}

		if err := bar.Add(1); err != nil {
			log.Errorf("failed to add to progress bar: %v", err)
		}
	})

	if err := bar.Finish(); err != nil {
		log.Errorf("failed to finish progress bar: %v", err)
	}

	return results
}

// verifySignature uses go-rpmutils to GPG-check + digest-check one file.
func verifySignature(rpmPath, keyringPath string) error {
	keyringFile, err := os.Open(keyringPath)
	if err != nil {
		return fmt.Errorf("opening public key: %w", err)
	}
	defer keyringFile.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(keyringFile)
	if err != nil {
		return fmt.Errorf("loading keyring: %w", err)
	}

	f, err := os.Open(rpmPath)
	if err != nil {
		return fmt.Errorf("opening rpm: %w", err)
	}
	defer f.Close()

	_, sigs, err := rpmutils.Verify(f, keyring)
	if err != nil {
		return fmt.Errorf("verify failed: %w", err)
	}
	if len(sigs) == 0 {
		return fmt.Errorf("no GPG signatures found")
	}
	return nil
}

// runIndexed fans the indices 0..total-1 out over a bounded worker pool.
func runIndexed(total, workers int, fn func(idx int)) {
	if workers <= 0 {
		workers = 4
	}
	jobs := make(chan int, total)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				fn(idx)
			}
		}()
	}

	for i := 0; i < total; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

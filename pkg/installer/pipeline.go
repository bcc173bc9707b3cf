// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/antimetal/hostwatch/pkg/catalog"
)

const copyChunkSize = 32 * 1024

// Config parameterizes a Pipeline.
type Config struct {
	// EndpointTemplate is the installer vendor URL with one %s slot for
	// the dash-joined installer identifiers.
	EndpointTemplate string
	// ArtifactPath is where the downloaded installer is written and run
	// from.
	ArtifactPath string
	// Client is the HTTP client used for downloads. Defaults to
	// http.DefaultClient.
	Client *http.Client
}

// Pipeline downloads a composed installer for a set of selected apps and
// runs it. All outward communication from a run goes through the FIFO
// message channel; the run mutates no other shared state.
type Pipeline struct {
	logger   logr.Logger
	catalog  *catalog.Catalog
	config   Config
	messages chan Message
}

func NewPipeline(logger logr.Logger, cat *catalog.Catalog, config Config) *Pipeline {
	if config.Client == nil {
		config.Client = http.DefaultClient
	}
	return &Pipeline{
		logger:  logger,
		catalog: cat,
		config:  config,
		// Buffered so a run never blocks between poll-cycle drains.
		messages: make(chan Message, 64),
	}
}

// Messages is the single-consumer channel drained by the polling loop.
func (p *Pipeline) Messages() <-chan Message {
	return p.messages
}

// Start validates the selection and launches the asynchronous run.
// The caller must not start a second run until the previous one has
// reported StateChanged(idle) or Failed. There is no mid-run cancel;
// ctx bounds only the HTTP request.
func (p *Pipeline) Start(ctx context.Context, selected []string) error {
	if len(selected) == 0 {
		return ErrNoAppsSelected
	}
	ids := p.catalog.InstallerIDs(selected)
	if len(ids) == 0 {
		return ErrNoAppsSelected
	}

	url := fmt.Sprintf(p.config.EndpointTemplate, strings.Join(ids, "-"))
	runID := uuid.NewString()
	p.logger.Info("starting installer run",
		"run", runID, "apps", len(ids), "url", url)

	go p.run(ctx, runID, url)
	return nil
}

func (p *Pipeline) run(ctx context.Context, runID, url string) {
	logger := p.logger.WithValues("run", runID)

	p.messages <- Message{Kind: KindStateChanged, State: StateDownloading}

	if err := p.download(ctx, logger, url); err != nil {
		logger.Error(err, "installer download failed")
		p.messages <- Message{Kind: KindFailed, Err: err.Error()}
		return
	}

	p.messages <- Message{Kind: KindStateChanged, State: StateInstalling}

	if err := p.install(logger); err != nil {
		logger.Error(err, "installer execution failed")
		p.messages <- Message{Kind: KindFailed, Err: err.Error()}
		return
	}

	// The artifact is disposable once the installer has run.
	if err := os.Remove(p.config.ArtifactPath); err != nil && !os.IsNotExist(err) {
		logger.V(1).Info("failed to remove installer artifact", "error", err)
	}

	logger.Info("installer run complete")
	p.messages <- Message{Kind: KindStateChanged, State: StateIdle}
}

func (p *Pipeline) download(ctx context.Context, logger logr.Logger, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := p.config.Client.Do(req)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	// A leftover artifact is usually locked by a still-running installer;
	// refusing to touch it beats corrupting a live file.
	if err := os.Remove(p.config.ArtifactPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing artifact: %w", err)
	}

	file, err := os.Create(p.config.ArtifactPath)
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}

	total := resp.ContentLength
	var downloaded int64
	buf := make([]byte, copyChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := file.Write(buf[:n]); err != nil {
				file.Close()
				os.Remove(p.config.ArtifactPath)
				return fmt.Errorf("failed to write artifact: %w", err)
			}
			downloaded += int64(n)
			// Unknown length means no progress reporting, never a
			// fabricated value.
			if total > 0 {
				p.messages <- Message{
					Kind:     KindProgress,
					Progress: float64(downloaded) / float64(total),
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			file.Close()
			os.Remove(p.config.ArtifactPath)
			return fmt.Errorf("download stream failed: %w", readErr)
		}
	}

	if err := file.Close(); err != nil {
		os.Remove(p.config.ArtifactPath)
		return fmt.Errorf("failed to finalize artifact: %w", err)
	}

	logger.V(1).Info("download complete", "bytes", downloaded)
	return nil
}

func (p *Pipeline) install(logger logr.Logger) error {
	cmd := exec.Command(p.config.ArtifactPath)
	if err := cmd.Start(); err != nil {
		os.Remove(p.config.ArtifactPath)
		return fmt.Errorf("failed to launch installer: %w", err)
	}
	logger.V(1).Info("installer launched", "pid", cmd.Process.Pid)

	err := cmd.Wait()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		// The process handle broke, not the installer itself.
		os.Remove(p.config.ArtifactPath)
		return fmt.Errorf("failed to await installer: %w", err)
	}
	// A clean exit counts as success regardless of code: the installer
	// reports per-app outcomes through codes we do not interpret.
	if exitErr != nil {
		logger.V(1).Info("installer exited nonzero", "code", exitErr.ExitCode())
	}
	return nil
}

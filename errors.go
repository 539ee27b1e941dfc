package tarot

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrMissingVariable = errors.New("missing template variable")
	ErrGeneration      = errors.New("card generation failed")
	ErrDownload        = errors.New("card image download failed")
)

// MissingVariableError lists the placeholders a template needed but did not get.
type MissingVariableError struct {
	Template string
	Names    []string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("template %q: missing variables: %s", e.Template, strings.Join(e.Names, ", "))
}

func (e *MissingVariableError) Is(target error) bool {
	return target == ErrMissingVariable
}

// Kind classifies why a hosted call failed.
type Kind string

const (
	KindPrompt      Kind = "prompt"
	KindUnavailable Kind = "unavailable"
	KindTimeout     Kind = "timeout"
	KindMalformed   Kind = "malformed"
	// KindCanceled means the caller went away; nothing upstream failed.
	KindCanceled Kind = "canceled"
)

// GenerationError is the single failure category of the pipeline. Stage and
// Kind tell the caller which call failed and whether retrying later could help.
type GenerationError struct {
	Stage Stage
	Kind  Kind
	Err   error
}

func (e *GenerationError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("generation %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: generation %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool {
	return target == ErrGeneration
}

// Transient reports whether the failure came from the network rather than
// from a bad prompt or an unexpected response shape.
func (e *GenerationError) Transient() bool {
	return e.Kind == KindUnavailable || e.Kind == KindTimeout
}

func newGenerationError(kind Kind, err error) *GenerationError {
	return &GenerationError{Kind: kind, Err: err}
}

// classify turns a transport error into a GenerationError, keeping an
// existing classification when the error already carries one.
func classify(err error) *GenerationError {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr
	}
	if errors.Is(err, context.Canceled) {
		return newGenerationError(KindCanceled, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newGenerationError(KindTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newGenerationError(KindTimeout, err)
	}
	if errors.Is(err, ErrMissingVariable) {
		return newGenerationError(KindPrompt, err)
	}
	return newGenerationError(KindUnavailable, err)
}

// DownloadError reports a card image that could not be fetched or decoded.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

func (e *DownloadError) Is(target error) bool {
	return target == ErrDownload
}

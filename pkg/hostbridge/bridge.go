// Package hostbridge exposes the decoder core's data contract to an
// embedding host (an in-browser or scripted runtime): a handful of
// operations that take a byte buffer and return a status plus an output
// buffer, with a separate call to retrieve the last error's text.
//
// This package does not itself cross any FFI boundary — that glue is the
// host's responsibility — it only implements the contract described by
// the core's external interface.
package hostbridge

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/sorenlund/dicom-lossless/pkg/dicom"
	"github.com/sorenlund/dicom-lossless/pkg/metadata"
	"github.com/sorenlund/dicom-lossless/pkg/pixelnorm"
)

// Status is the result code every bridge operation returns.
type Status int

const (
	StatusOK Status = iota
	StatusError
)

// Bridge holds the last error observed by any of its operations in one
// mutex-guarded slot. Every failure overwrites it, so concurrent sessions
// sharing a Bridge see whichever failure came last; the text is prefixed
// with the failing call's correlation ID.
type Bridge struct {
	mu        sync.Mutex
	lastError string
}

// New creates an empty Bridge.
func New() *Bridge {
	return &Bridge{}
}

func (b *Bridge) fail(correlationID string, err error) Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastError = fmt.Sprintf("[%s] %v", correlationID, err)
	return StatusError
}

// GetLastError returns the most recent error text recorded by any
// operation on this Bridge, or "" if none has failed yet.
func (b *Bridge) GetLastError() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastError
}

// ExtractMetadata parses dicomBytes and returns its projected metadata
// record as JSON.
func (b *Bridge) ExtractMetadata(dicomBytes []byte) (Status, []byte) {
	correlationID := uuid.New().String()
	_, ds, _, err := dicom.Parse(dicomBytes)
	if err != nil {
		return b.fail(correlationID, err), nil
	}
	rec := metadata.Project(ds)
	out, err := json.Marshal(rec)
	if err != nil {
		return b.fail(correlationID, err), nil
	}
	return StatusOK, out
}

// GetDimensions parses dicomBytes and returns its Rows/Columns.
func (b *Bridge) GetDimensions(dicomBytes []byte) (status Status, width, height int) {
	correlationID := uuid.New().String()
	_, ds, _, err := dicom.Parse(dicomBytes)
	if err != nil {
		return b.fail(correlationID, err), 0, 0
	}
	rec := metadata.Project(ds)
	if rec.Columns == nil || rec.Rows == nil {
		return b.fail(correlationID, fmt.Errorf("missing Rows/Columns")), 0, 0
	}
	return StatusOK, *rec.Columns, *rec.Rows
}

// DecodeToRGB parses and fully decodes dicomBytes, returning interleaved
// 8-bit RGB samples.
func (b *Bridge) DecodeToRGB(dicomBytes []byte) (status Status, rgb []byte, width, height int) {
	correlationID := uuid.New().String()
	_, ds, ts, err := dicom.Parse(dicomBytes)
	if err != nil {
		return b.fail(correlationID, err), nil, 0, 0
	}
	gray, err := pixelnorm.Normalize(ds, ts)
	if err != nil {
		return b.fail(correlationID, err), nil, 0, 0
	}
	rgbImg := pixelnorm.ToRGB(gray)
	return StatusOK, rgbImg.Pixels, rgbImg.Width, rgbImg.Height
}

package http

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"fintrack/internal/log"
	"fintrack/internal/receipt"
)

const receiptField = "receipt"

// handleReceiptTotal serves POST /api/receipts/total. A JSON body
// {"text": "..."} is scanned directly; a multipart upload with a "receipt"
// image goes through the recognizer first.
func (s *Server) handleReceiptTotal(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		res    receipt.Result
		source string
		err    error
	)
	switch mediaType {
	case "multipart/form-data":
		source = "image"
		res, err = s.receiptFromUpload(w, r)
	default:
		source = "text"
		var req receiptTextRequest
		if err = decodeJSON(w, r, &req); err == nil {
			res = s.scanner.FromText(req.Text)
		}
	}

	if !errors.Is(err, errBadRequest) {
		s.metrics.ReceiptExtraction(source, res.Found, err)
	}
	if err != nil {
		writeStorageError(w, r, log.OpExtract, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Receipt scanned",
		"source", source,
		"found", res.Found,
		log.FieldAmount, res.Total)

	writeJSON(w, r, http.StatusOK, receiptResponse{Found: res.Found, Total: res.Total, Text: res.Text})
}

func (s *Server) receiptFromUpload(w http.ResponseWriter, r *http.Request) (receipt.Result, error) {
	if !s.scanner.CanRecognize() {
		return receipt.Result{}, receipt.ErrNoRecognizer
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptUpload)
	if err := r.ParseMultipartForm(maxReceiptUpload); err != nil {
		return receipt.Result{}, fmt.Errorf("%w: invalid upload: %v", errBadRequest, err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(receiptField)
	if err != nil {
		return receipt.Result{}, fmt.Errorf("%w: missing %q file", errBadRequest, receiptField)
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		return receipt.Result{}, fmt.Errorf("%w: read upload: %v", errBadRequest, err)
	}
	if len(image) == 0 {
		return receipt.Result{}, fmt.Errorf("%w: empty %q file", errBadRequest, receiptField)
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(image)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return receipt.Result{}, fmt.Errorf("%w: %q is not an image", errBadRequest, mimeType)
	}

	return s.scanner.FromImage(r.Context(), image, mimeType)
}

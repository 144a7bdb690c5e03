package pipeline

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"
)

// FormField is the multipart field the upload form posts the image in.
const FormField = "file"

// Upload is one image taken off a form submission.
type Upload struct {
	Filename string
	Data     []byte
}

// Intake streams a multipart form submission and returns the first part
// named FormField that carries a filename parameter. At most maxBytes of
// the file are read.
//
// A part named FormField without any filename parameter is a plain form
// value, not a file, and is skipped. A filename parameter that is present
// but empty means the form was submitted with no file chosen.
func Intake(r *http.Request, maxBytes int64) (*Upload, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, ErrMissingFile
		}
		return nil, wrap(StageUpload, err)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, ErrMissingFile
		}
		if err != nil {
			return nil, wrap(StageUpload, err)
		}

		if part.FormName() != FormField || !hasFilenameParam(part.Header.Get("Content-Disposition")) {
			part.Close()
			continue
		}

		filename := part.FileName()
		if filename == "" {
			part.Close()
			return nil, ErrEmptyFilename
		}

		data, err := io.ReadAll(io.LimitReader(part, maxBytes+1))
		part.Close()
		if err != nil {
			return nil, wrap(StageUpload, err)
		}
		if int64(len(data)) > maxBytes {
			return nil, wrap(StageUpload, &http.MaxBytesError{Limit: maxBytes})
		}
		return &Upload{Filename: filename, Data: data}, nil
	}
}

func hasFilenameParam(disposition string) bool {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return false
	}
	_, ok := params["filename"]
	return ok
}

// StoredFilename prefixes the original name with the Unix time of the upload.
// Two uploads of the same name within one second map to the same key.
func StoredFilename(now time.Time, original string) string {
	return fmt.Sprintf("%d_%s", now.Unix(), original)
}

package meeting

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/otherjamesbrown/breeze-cli/pkg/contentid"
	brerrors "github.com/otherjamesbrown/breeze-cli/pkg/errors"
)

// User-facing validation messages.
const (
	MsgLinkRequired     = "Please enter a meeting link"
	MsgDocumentRequired = "Please upload a PDF document first"
	MsgPDFOnly          = "Please upload a PDF file"
)

// PDFContentType is the only accepted document media type.
const PDFContentType = "application/pdf"

// ValidateNewMeeting performs the presence checks for Create.
func ValidateNewMeeting(in NewMeeting) error {
	if strings.TrimSpace(in.Link) == "" {
		return brerrors.NewValidation("link", MsgLinkRequired)
	}
	if strings.TrimSpace(in.DocumentName) == "" {
		return brerrors.NewValidation("document", MsgDocumentRequired)
	}
	return nil
}

// ValidateID checks that id has the meeting identifier format, so callers can
// reject a mistyped id before reading the store.
func ValidateID(id string) error {
	if _, err := contentid.Parse(id); err != nil {
		return brerrors.Validationf("id", "invalid meeting id %q: %v", id, err)
	}
	return nil
}

// ValidateDocument checks an uploaded file is a PDF. contentType is the
// declared or sniffed media type; when it is empty or generic the file
// extension decides.
func ValidateDocument(name, contentType string) error {
	if strings.TrimSpace(name) == "" {
		return brerrors.NewValidation("document", MsgDocumentRequired)
	}

	mediaType := ""
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return brerrors.NewValidation("document", MsgPDFOnly)
		}
		mediaType = mt
	}

	switch mediaType {
	case PDFContentType:
		return nil
	case "", "application/octet-stream":
		if strings.EqualFold(filepath.Ext(name), ".pdf") {
			return nil
		}
	}
	return brerrors.NewValidation("document", MsgPDFOnly)
}

package extract

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Jetrug/companysheet/constants"
	"github.com/Jetrug/companysheet/internal/common"
)

// ValidateIntake rejects anything that is not a well-formed PDF before the
// pipeline spends a collaborator call on it. Returns the page count on
// success. Size is advisory only; the extraction collaborator enforces its
// own cap.
func ValidateIntake(fileName string, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: %s is empty", common.ErrIntakeRejected, fileName)
	}

	ext := constants.NormalizeExt(filepath.Ext(fileName))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return 0, fmt.Errorf("%w: extension %q", common.ErrIntakeRejected, ext)
	}

	sniffed := http.DetectContentType(data)
	if _, ok := constants.AllowedContentTypes[sniffed]; !ok {
		return 0, fmt.Errorf("%w: content type %q", common.ErrIntakeRejected, sniffed)
	}

	pages, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("%w: not a readable PDF: %v", common.ErrIntakeRejected, err)
	}
	if pages == 0 {
		return 0, fmt.Errorf("%w: PDF has no pages", common.ErrIntakeRejected)
	}
	return pages, nil
}

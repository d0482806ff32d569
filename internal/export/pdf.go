package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

const captureImageName = "capture"

// A4 portrait in millimetres.
const (
	A4WidthMM  = 210.0
	A4HeightMM = 297.0
)

// buildMultiPagePDF places the capture on as many pages as the plan needs,
// each shifted up by its page offset.
func buildMultiPagePDF(c *Capture, plan Plan) ([]byte, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: plan.ImageWidth, Ht: plan.PageHeight},
	})
	return writeImagePages(pdf, c, plan)
}

// buildSinglePagePDF emits one page exactly as tall as the scaled capture.
func buildSinglePagePDF(c *Capture, pageW float64) ([]byte, error) {
	imgH := pageW * float64(c.Height) / float64(c.Width)
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: pageW, Ht: imgH},
	})
	plan := Plan{
		ImageWidth:  pageW,
		ImageHeight: imgH,
		PageHeight:  imgH,
		Pages:       []PagePlacement{{Page: 1}},
	}
	return writeImagePages(pdf, c, plan)
}

func writeImagePages(pdf *fpdf.Fpdf, c *Capture, plan Plan) ([]byte, error) {
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(captureImageName, opts, bytes.NewReader(c.PNG))
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to register capture image: %w", err)
	}

	for _, p := range plan.Pages {
		pdf.AddPage()
		pdf.ImageOptions(captureImageName, 0, p.Y, plan.ImageWidth, plan.ImageHeight, false, opts, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

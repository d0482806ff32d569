package export

import "math"

// roundingSlack is how many ULPs of the image height count as float noise.
const roundingSlack = 8

// PagePlacement is where the full scaled image sits on one page. Only the
// window [Offset, Offset+page height) of the image is visible on that page.
type PagePlacement struct {
	Page   int     `json:"page"`
	Offset float64 `json:"offset"`
	Y      float64 `json:"y"`
}

// Plan is the pagination of one capture.
type Plan struct {
	ImageWidth  float64         `json:"image_width"`
	ImageHeight float64         `json:"image_height"`
	PageHeight  float64         `json:"page_height"`
	Pages       []PagePlacement `json:"pages"`
}

// Paginate slices a rasterW x rasterH capture across pages of pageW x pageH.
// The image is scaled so its width fills the page; its height keeps the
// aspect ratio. Every page shows the same image shifted up by one more page
// height, so the result has ceil(imageHeight/pageH) pages.
func Paginate(rasterW, rasterH int, pageW, pageH float64) (Plan, error) {
	if rasterW <= 0 || rasterH <= 0 || pageW <= 0 || pageH <= 0 ||
		math.IsNaN(pageW) || math.IsNaN(pageH) || math.IsInf(pageW, 0) || math.IsInf(pageH, 0) {
		return Plan{}, ErrInvalidGeometry
	}

	imgH := pageW * (float64(rasterH) / float64(rasterW))
	plan := Plan{
		ImageWidth:  pageW,
		ImageHeight: imgH,
		PageHeight:  pageH,
	}

	// An exact fit may land a few ULPs over a page boundary after the
	// aspect-ratio scaling; that noise must not spawn an empty page.
	tolerance := roundingSlack * (math.Nextafter(imgH, math.Inf(1)) - imgH)

	plan.Pages = append(plan.Pages, PagePlacement{Page: 1})
	for offset := pageH; imgH-offset > tolerance; offset = float64(len(plan.Pages)) * pageH {
		plan.Pages = append(plan.Pages, PagePlacement{Page: len(plan.Pages) + 1, Offset: offset, Y: -offset})
	}

	return plan, nil
}

// PagePixelHeight converts a physical page height into raster pixels for a
// capture rasterW pixels wide.
func PagePixelHeight(rasterW int, pageW, pageH float64) float64 {
	if pageW <= 0 {
		return 0
	}
	return float64(rasterW) * pageH / pageW
}

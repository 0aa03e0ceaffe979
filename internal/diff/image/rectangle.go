package image

import "image"

type Rectangle struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Rectangle) rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// regionMergeDistance is how close two regions may be, in pixels, before
// they are reported as one.
const regionMergeDistance = 10

// FindRegions groups the marked pixels of mask into 8-connected components
// and returns their bounding boxes, merging boxes that overlap or lie within
// regionMergeDistance of each other.
func FindRegions(mask []bool, width int, height int) []Rectangle {
	visited := make([]bool, len(mask))
	var regions []Rectangle
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			if mask[i] && !visited[i] {
				regions = append(regions, boundingBox(mask, visited, x, y, width, height))
			}
		}
	}
	return mergeRegions(regions)
}

func boundingBox(mask []bool, visited []bool, startX int, startY int, width int, height int) Rectangle {
	box := image.Rect(startX, startY, startX+1, startY+1)

	queue := []image.Point{{X: startX, Y: startY}}
	visited[startY*width+startX] = true
	for len(queue) > 0 {
		pt := queue[0]
		queue = queue[1:]
		box = box.Union(image.Rect(pt.X, pt.Y, pt.X+1, pt.Y+1))

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := pt.X+dx, pt.Y+dy
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				i := ny*width + nx
				if mask[i] && !visited[i] {
					visited[i] = true
					queue = append(queue, image.Point{X: nx, Y: ny})
				}
			}
		}
	}

	return Rectangle{X: box.Min.X, Y: box.Min.Y, Width: box.Dx(), Height: box.Dy()}
}

func mergeRegions(regions []Rectangle) []Rectangle {
	if len(regions) <= 1 {
		return regions
	}

	merged := make([]Rectangle, 0, len(regions))
	used := make([]bool, len(regions))
	for i := range regions {
		if used[i] {
			continue
		}

		current := regions[i].rect()
		for changed := true; changed; {
			changed = false
			for j := i + 1; j < len(regions); j++ {
				if used[j] {
					continue
				}
				if near(current, regions[j].rect(), regionMergeDistance) {
					current = current.Union(regions[j].rect())
					used[j] = true
					changed = true
				}
			}
		}

		merged = append(merged, Rectangle{X: current.Min.X, Y: current.Min.Y, Width: current.Dx(), Height: current.Dy()})
	}
	return merged
}

func near(a image.Rectangle, b image.Rectangle, distance int) bool {
	return a.Inset(-distance).Overlaps(b)
}

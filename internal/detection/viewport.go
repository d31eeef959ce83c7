package detection

// Viewport is the size of the display surface detections are drawn on.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Letterbox fits a video of videoW x videoH into a display box of boxW x boxH
// keeping the video's aspect ratio. A zero sized box yields the intrinsic
// video size.
func Letterbox(videoW, videoH, boxW, boxH int) Viewport {
	if videoW <= 0 || videoH <= 0 {
		return Viewport{}
	}
	if boxW <= 0 || boxH <= 0 {
		return Viewport{Width: float64(videoW), Height: float64(videoH)}
	}

	videoRatio := float64(videoW) / float64(videoH)
	width := float64(boxW)
	height := float64(boxH)

	if width/height > videoRatio {
		// wide box, pillarbox
		width = height * videoRatio
	} else {
		height = width / videoRatio
	}

	return Viewport{Width: width, Height: height}
}

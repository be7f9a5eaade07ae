// Package export writes the timeline out as a CMX 3600 EDL so a cut can
// be finished in a desktop NLE instead of the media compiler.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/storyreel/storyreel-agent/internal/studio"
	"github.com/storyreel/storyreel-agent/internal/timeline"
)

// GenerateEDL lays the project's scenes onto a single video track in
// timeline order. Each scene becomes one event; source in is always
// zero since stills have no inherent timecode.
func GenerateEDL(project *studio.Project, scenes []studio.Scene) string {
	title := "Untitled"
	frameRate := 30.0
	if project != nil {
		if project.Title != "" {
			title = SanitizeName(project.Title, 60)
		}
		if project.FPS > 0 {
			frameRate = float64(project.FPS)
		}
	}

	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 30
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	for i, r := range timeline.Ranges(scenes) {
		durationMs := int(math.Round(r.Scene.DurationSec * 1000))
		recInMs := int(math.Round(r.StartSec * 1000))

		srcIn := msToTimecode(0, fps)
		srcOut := msToTimecode(durationMs, fps)
		recIn := msToTimecode(recInMs, fps)
		recOut := msToTimecode(recInMs+durationMs, fps)

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V", srcIn, srcOut, recIn, recOut),
			fmt.Sprintf("* FROM CLIP NAME:  %s", clipName(r.Scene, i)),
		)
		if r.Scene.ImageURL != "" {
			lines = append(lines, fmt.Sprintf("* MEDIA PATH:  %s", r.Scene.ImageURL))
		}
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func clipName(s studio.Scene, index int) string {
	if s.Title != "" {
		return SanitizeName(s.Title, 40)
	}
	return fmt.Sprintf("Scene %d", index+1)
}

func msToTimecode(ms int, fps int) string {
	totalFrames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}

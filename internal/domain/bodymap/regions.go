package bodymap

import "fmt"

// Region is a rectangular zone of the body diagram in percent coordinates.
// Both ranges are closed.
type Region struct {
	Key   string     `json:"key"`
	X     [2]float64 `json:"x"`
	Y     [2]float64 `json:"y"`
	Label string     `json:"label"`
}

// Contains reports whether (x, y) lies inside both ranges.
func (r Region) Contains(x, y float64) bool {
	return x >= r.X[0] && x <= r.X[1] && y >= r.Y[0] && y <= r.Y[1]
}

// Tables are scanned in order and the first hit wins, so shared borders
// resolve to the region declared first.
var frontRegions = []Region{
	{"head", [2]float64{40, 60}, [2]float64{5, 18}, "Head"},
	{"neck", [2]float64{45, 55}, [2]float64{18, 25}, "Neck"},

	{"left_chest", [2]float64{30, 50}, [2]float64{25, 45}, "Left Chest"},
	{"right_chest", [2]float64{50, 70}, [2]float64{25, 45}, "Right Chest"},
	{"left_abdomen", [2]float64{30, 50}, [2]float64{45, 60}, "Left Abdomen"},
	{"right_abdomen", [2]float64{50, 70}, [2]float64{45, 60}, "Right Abdomen"},

	{"left_shoulder", [2]float64{15, 35}, [2]float64{25, 35}, "Left Shoulder"},
	{"right_shoulder", [2]float64{65, 85}, [2]float64{25, 35}, "Right Shoulder"},
	{"left_upper_arm", [2]float64{15, 35}, [2]float64{35, 50}, "Left Upper Arm"},
	{"right_upper_arm", [2]float64{65, 85}, [2]float64{35, 50}, "Right Upper Arm"},
	{"left_forearm", [2]float64{15, 35}, [2]float64{50, 65}, "Left Forearm"},
	{"right_forearm", [2]float64{65, 85}, [2]float64{50, 65}, "Right Forearm"},
	{"left_hand", [2]float64{15, 35}, [2]float64{65, 75}, "Left Hand"},
	{"right_hand", [2]float64{65, 85}, [2]float64{65, 75}, "Right Hand"},

	{"left_thigh", [2]float64{35, 48}, [2]float64{60, 80}, "Left Thigh"},
	{"right_thigh", [2]float64{52, 65}, [2]float64{60, 80}, "Right Thigh"},
	{"left_knee", [2]float64{35, 48}, [2]float64{80, 85}, "Left Knee"},
	{"right_knee", [2]float64{52, 65}, [2]float64{80, 85}, "Right Knee"},
	{"left_shin", [2]float64{35, 48}, [2]float64{85, 95}, "Left Shin"},
	{"right_shin", [2]float64{52, 65}, [2]float64{85, 95}, "Right Shin"},
	{"left_foot", [2]float64{30, 50}, [2]float64{95, 100}, "Left Foot"},
	{"right_foot", [2]float64{50, 70}, [2]float64{95, 100}, "Right Foot"},
}

var backRegions = []Region{
	{"head", [2]float64{40, 60}, [2]float64{5, 18}, "Head"},
	{"neck", [2]float64{45, 55}, [2]float64{18, 25}, "Neck"},

	{"left_upper_back", [2]float64{30, 50}, [2]float64{25, 45}, "Left Upper Back"},
	{"right_upper_back", [2]float64{50, 70}, [2]float64{25, 45}, "Right Upper Back"},
	{"left_lower_back", [2]float64{30, 50}, [2]float64{45, 60}, "Left Lower Back"},
	{"right_lower_back", [2]float64{50, 70}, [2]float64{45, 60}, "Right Lower Back"},

	{"left_shoulder", [2]float64{15, 35}, [2]float64{25, 35}, "Left Shoulder"},
	{"right_shoulder", [2]float64{65, 85}, [2]float64{25, 35}, "Right Shoulder"},
	{"left_upper_arm", [2]float64{15, 35}, [2]float64{35, 50}, "Left Upper Arm"},
	{"right_upper_arm", [2]float64{65, 85}, [2]float64{35, 50}, "Right Upper Arm"},
	{"left_forearm", [2]float64{15, 35}, [2]float64{50, 65}, "Left Forearm"},
	{"right_forearm", [2]float64{65, 85}, [2]float64{50, 65}, "Right Forearm"},
	{"left_hand", [2]float64{15, 35}, [2]float64{65, 75}, "Left Hand"},
	{"right_hand", [2]float64{65, 85}, [2]float64{65, 75}, "Right Hand"},

	{"left_thigh", [2]float64{35, 48}, [2]float64{60, 80}, "Left Thigh"},
	{"right_thigh", [2]float64{52, 65}, [2]float64{60, 80}, "Right Thigh"},
	{"left_knee", [2]float64{35, 48}, [2]float64{80, 85}, "Left Knee"},
	{"right_knee", [2]float64{52, 65}, [2]float64{80, 85}, "Right Knee"},
	{"left_calf", [2]float64{35, 48}, [2]float64{85, 95}, "Left Calf"},
	{"right_calf", [2]float64{52, 65}, [2]float64{85, 95}, "Right Calf"},
	{"left_foot", [2]float64{30, 50}, [2]float64{95, 100}, "Left Foot"},
	{"right_foot", [2]float64{50, 70}, [2]float64{95, 100}, "Right Foot"},
}

func table(side Side) []Region {
	if side == Back {
		return backRegions
	}
	return frontRegions
}

// Regions returns a copy of the zone table for side.
func Regions(side Side) []Region {
	t := table(side)
	out := make([]Region, len(t))
	copy(out, t)
	return out
}

// Locate labels the point (x, y), given in percent of the diagram, as
// "<Label> (<side>)", or "Unknown Location (<side>)" when no zone holds it.
func Locate(x, y float64, side Side) string {
	for _, r := range table(side) {
		if r.Contains(x, y) {
			return fmt.Sprintf("%s (%s)", r.Label, side)
		}
	}
	return fmt.Sprintf("Unknown Location (%s)", side)
}

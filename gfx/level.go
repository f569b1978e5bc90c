package gfx

import "fmt"

// FeatureLevel is a capability tier, encoded like D3D_FEATURE_LEVEL.
type FeatureLevel uint32

const (
	FeatureLevel9_3  FeatureLevel = 0x9300
	FeatureLevel10_0 FeatureLevel = 0xa000
	FeatureLevel10_1 FeatureLevel = 0xa100
	FeatureLevel11_0 FeatureLevel = 0xb000
	FeatureLevel11_1 FeatureLevel = 0xb100
)

// DefaultFeatureLevels is the preference list used when none is given.
var DefaultFeatureLevels = []FeatureLevel{
	FeatureLevel11_1,
	FeatureLevel11_0,
	FeatureLevel10_1,
	FeatureLevel10_0,
	FeatureLevel9_3,
}

func (l FeatureLevel) Major() int {
	return int(l >> 12)
}

func (l FeatureLevel) Minor() int {
	return int(l>>8) & 0xf
}

func (l FeatureLevel) String() string {
	return fmt.Sprintf("%d.%d", l.Major(), l.Minor())
}

// ShaderModel returns the highest shader model suffix the level supports,
// e.g. "5_0" for 11.0.
func (l FeatureLevel) ShaderModel() string {
	switch {
	case l >= FeatureLevel11_0:
		return "5_0"
	case l >= FeatureLevel10_1:
		return "4_1"
	case l >= FeatureLevel10_0:
		return "4_0"
	default:
		return "4_0_level_9_3"
	}
}

// SelectFeatureLevel returns the first level of the preference list that is
// not above max.
func SelectFeatureLevel(preference []FeatureLevel, max FeatureLevel) (FeatureLevel, bool) {
	if len(preference) == 0 {
		preference = DefaultFeatureLevels
	}

	for _, level := range preference {
		if level <= max {
			return level, true
		}
	}

	return 0, false
}

// AdapterInfo describes the adapter a device was created on.
type AdapterInfo struct {
	Description     string
	VendorID        uint32
	DeviceID        uint32
	DedicatedMemory uint64
	Software        bool
}

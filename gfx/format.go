package gfx

// Format is a resource or vertex element format. The values match DXGI_FORMAT.
type Format uint32

const (
	FormatUnknown           Format = 0
	FormatR32G32B32A32Float Format = 2
	FormatR32G32B32Float    Format = 6
	FormatR32G32Float       Format = 16
	FormatR8G8B8A8Unorm     Format = 28
	FormatR32Float          Format = 41
	FormatR32Uint           Format = 42
	FormatD24UnormS8Uint    Format = 45
	FormatR16Uint           Format = 57
	FormatB8G8R8A8Unorm     Format = 87
)

// Size returns the size of one element of the format in bytes.
func (f Format) Size() uint32 {
	switch f {
	case FormatR32G32B32A32Float:
		return 16
	case FormatR32G32B32Float:
		return 12
	case FormatR32G32Float:
		return 8
	case FormatR8G8B8A8Unorm, FormatB8G8R8A8Unorm, FormatR32Float, FormatR32Uint, FormatD24UnormS8Uint:
		return 4
	case FormatR16Uint:
		return 2
	default:
		return 0
	}
}

// Components returns the number of components a vertex format delivers
// to the shader.
func (f Format) Components() int {
	switch f {
	case FormatR32G32B32A32Float, FormatR8G8B8A8Unorm, FormatB8G8R8A8Unorm:
		return 4
	case FormatR32G32B32Float:
		return 3
	case FormatR32G32Float:
		return 2
	case FormatR32Float, FormatR32Uint:
		return 1
	default:
		return 0
	}
}

func (f Format) IsDepth() bool {
	return f == FormatD24UnormS8Uint
}

func (f Format) String() string {
	switch f {
	case FormatR32G32B32A32Float:
		return "R32G32B32A32_FLOAT"
	case FormatR32G32B32Float:
		return "R32G32B32_FLOAT"
	case FormatR32G32Float:
		return "R32G32_FLOAT"
	case FormatR8G8B8A8Unorm:
		return "R8G8B8A8_UNORM"
	case FormatR32Float:
		return "R32_FLOAT"
	case FormatR32Uint:
		return "R32_UINT"
	case FormatD24UnormS8Uint:
		return "D24_UNORM_S8_UINT"
	case FormatR16Uint:
		return "R16_UINT"
	case FormatB8G8R8A8Unorm:
		return "B8G8R8A8_UNORM"
	default:
		return "UNKNOWN"
	}
}

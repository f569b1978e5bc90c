package glimpse

//go:generate stringer -type=Key -trimprefix=Key

type Key uint32

const (
	KeySpace Key = iota + 1
	KeyEscape
	KeyEnter
	KeyP
	KeyR
	KeyT
	KeyW
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
)

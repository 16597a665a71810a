package audio

// Source delivers hardware buffers on its own capture goroutine.
// Stop is idempotent and no onBlock call happens after it returns.
type Source interface {
	Format() (Format, error)
	Start(onBlock func(Block)) error
	Stop()
}

type Category string

const CategoryPlayAndRecord Category = "play_and_record"

type Permission interface {
	Request() bool
}

type Session interface {
	Configure(category Category, preferredSampleRate int) error
}

type grantedPermission struct{}

func (grantedPermission) Request() bool { return true }

// GrantedPermission is used on hosts without a microphone permission prompt.
var GrantedPermission Permission = grantedPermission{}

type noopSession struct{}

func (noopSession) Configure(Category, int) error { return nil }

var NoopSession Session = noopSession{}

type Converter interface {
	Prepare(from Format) error
	Convert(block Block) ([]byte, error)
	Reset()
}

type ConverterFactory func() Converter

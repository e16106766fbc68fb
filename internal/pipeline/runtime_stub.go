//go:build !govips || !cgo

package pipeline

func Startup() error {
	return nil
}

func Shutdown() {}

func newBackend() (Backend, error) {
	return stdlibBackend{}, nil
}

package radio

import "errors"

var (
	ErrTransmit = errors.New("radio: transmit failed")
	ErrClosed   = errors.New("radio: closed")
)

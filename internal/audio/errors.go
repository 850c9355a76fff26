package audio

import "errors"

var errNotConfirmed = errors.New("no audio stream found after remux")

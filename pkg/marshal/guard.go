package marshal

import (
	"github.com/roach88/cangen/pkg/trap"
	"github.com/roach88/cangen/pkg/vm"
)

// Guard result messages. They are kept distinct so a failing guard can be
// diagnosed from the trap text alone.
const (
	MsgNotGuardResult = "value is not a GuardResult"
	MsgNotString      = "value is not a string"
	MsgNotNull        = "value is not null"
)

// DecodeGuardResult interprets a guard function's return value.
//
// {err: text} rejects the call with that text; {ok: null} admits it. The err
// tag is checked first. Any other shape is a ShapeMismatch.
func DecodeGuardResult(v vm.Value) (rejection string, ok bool, err error) {
	obj, isObj := v.(*vm.Object)
	if !isObj {
		return "", false, trap.MismatchMessage(MsgNotGuardResult)
	}
	if payload, has := obj.Get("err"); has {
		s, isStr := payload.(vm.String)
		if !isStr {
			return "", false, trap.MismatchMessage(MsgNotString)
		}
		return string(s), false, nil
	}
	if payload, has := obj.Get("ok"); has {
		if _, isNull := payload.(vm.Null); !isNull {
			return "", false, trap.MismatchMessage(MsgNotNull)
		}
		return "", true, nil
	}
	return "", false, trap.MismatchMessage(MsgNotGuardResult)
}

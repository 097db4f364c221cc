package dispatcher

import (
	commonerrors "github.com/linghuying/oasis-core/go/common/errors"
	"github.com/linghuying/oasis-core/go/runtime/host/protocol"
)

// moduleName is the error module every typed error this package raises
// is reported under.
const moduleName = "rhp/dispatcher"

const (
	codeInvalidMessage    uint32 = 1
	codeVerifierFailure   uint32 = 2
	codeSubDispatchFailed uint32 = 3
	codeSigningFailed     uint32 = 4
)

func errorBody(code uint32, message string) *protocol.Body {
	return &protocol.Body{Error: commonerrors.New(moduleName, code, message)}
}

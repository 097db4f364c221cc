// Command dispatcherd is a minimal host process that drives a
// runtime/host/dispatcher.Dispatcher over a length-prefixed CBOR stream
// on stdin/stdout. It exists to exercise the dispatcher end to end; the
// real wire transport and session handshake between an untrusted host
// and the enclave runtime are out of scope.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/linghuying/oasis-core/go/common/logging"
	"github.com/linghuying/oasis-core/go/common/namespace"
	"github.com/linghuying/oasis-core/go/runtime/host/dispatcher"
	"github.com/linghuying/oasis-core/go/runtime/host/protocol"
	"github.com/linghuying/oasis-core/go/runtime/rak"
)

const cfgRuntimeID = "runtime.id"

var (
	rootFlags = flag.NewFlagSet("", flag.ContinueOnError)

	rootCmd = &cobra.Command{
		Use:   "dispatcherd",
		Short: "runtime call dispatcher host process",
		Run:   doRun,
	}

	logger = logging.GetLogger("cmd/dispatcherd")
)

func doRun(cmd *cobra.Command, args []string) {
	if err := hardenProcess(); err != nil {
		logger.Error("failed to harden process", "err", err)
		os.Exit(1)
	}

	rawID, _ := rootFlags.GetString(cfgRuntimeID)
	var runtimeID namespace.Namespace
	if rawID != "" {
		decoded, err := hex.DecodeString(rawID)
		if err != nil || len(decoded) != namespace.Size {
			logger.Error("malformed runtime id", "err", err)
			os.Exit(1)
		}
		copy(runtimeID[:], decoded)
	}

	proto := newStdioProtocol(runtimeID, os.Stdout)
	disp := dispatcher.New(plaintextDemux{}, rak.New(nil), nil)
	disp.Start(proto, trustingVerifier{})

	err := readFrames(os.Stdin, proto, func(ctx context.Context, id uint64, body protocol.Body) {
		if qerr := disp.QueueRequest(ctx, id, body); qerr != nil {
			logger.Error("failed to queue request, dropping", "err", qerr, "id", id)
		}
	})
	if err != nil {
		logger.Info("stdin closed, exiting", "err", err)
	}
}

func hardenProcess() error {
	return applySeccompFilter()
}

func main() {
	rootFlags.String(cfgRuntimeID, "", "hex-encoded runtime identifier")
	rootCmd.Flags().AddFlagSet(rootFlags)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

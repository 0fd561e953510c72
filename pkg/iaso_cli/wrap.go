// pkg/iaso_cli/wrap.go

package iaso_cli

import (
	"context"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_err"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/logger"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Wrap decorates a command handler with panic recovery, runtime-context
// lifecycle and stack capture for unexpected errors.
func Wrap(fn func(rc *iaso_io.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		logger.InitFallback()

		rc := iaso_io.NewContext(context.Background(), cmd.Name())
		defer rc.End(&err)

		defer func() {
			if r := recover(); r != nil {
				err = cerr.AssertionFailedf("panic: %v", r)
				rc.Log.Error("Panic recovered", zap.Any("panic", r))
			}
		}()

		err = fn(rc, cmd, args)
		if err != nil && !iaso_err.IsExpectedUserError(err) {
			err = cerr.WithStack(err)
		}
		return err
	}
}

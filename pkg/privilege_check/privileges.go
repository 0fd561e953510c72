// pkg/privilege_check/privileges.go
package privilege_check

import (
	"os"
	"os/exec"
	"os/user"
	"time"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_err"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// PrivilegeLevel describes how much authority the current process holds.
type PrivilegeLevel string

const (
	PrivilegeLevelRoot    PrivilegeLevel = "root"
	PrivilegeLevelSudo    PrivilegeLevel = "sudo"
	PrivilegeLevelRegular PrivilegeLevel = "regular"
)

// PrivilegeCheck is the result of assessing the current process.
type PrivilegeCheck struct {
	Username  string
	UserID    int
	GroupID   int
	Level     PrivilegeLevel
	IsRoot    bool
	HasSudo   bool
	Timestamp time.Time
}

// CheckPrivileges checks the current user's privilege level following the
// Assess -> Intervene -> Evaluate pattern.
func CheckPrivileges(rc *iaso_io.RuntimeContext) (*PrivilegeCheck, error) {
	logger := otelzap.Ctx(rc.Ctx)

	// ASSESS
	logger.Debug("Assessing privilege check request")

	check := &PrivilegeCheck{
		Timestamp: time.Now(),
	}

	// INTERVENE
	check.UserID = os.Geteuid()
	check.GroupID = os.Getegid()

	currentUser, err := user.Current()
	if err != nil {
		logger.Error("Failed to get current user info", zap.Error(err))
		return check, err
	}
	check.Username = currentUser.Username

	check.IsRoot = (check.UserID == 0)
	if check.IsRoot {
		check.Level = PrivilegeLevelRoot
		check.HasSudo = true
	} else {
		check.HasSudo = checkSudoAccess(rc)
		if check.HasSudo {
			check.Level = PrivilegeLevelSudo
		} else {
			check.Level = PrivilegeLevelRegular
		}
	}

	// EVALUATE
	logger.Debug("Privilege check completed",
		zap.String("username", check.Username),
		zap.Int("uid", check.UserID),
		zap.String("level", string(check.Level)),
		zap.Bool("is_root", check.IsRoot),
		zap.Bool("has_sudo", check.HasSudo))

	return check, nil
}

// RequireRoot gates privileged remediation runs. It is called exactly once,
// before any step executes; failure is surfaced as a single
// InsufficientPrivilege condition rather than per-step failures.
func RequireRoot(rc *iaso_io.RuntimeContext, operation string) error {
	logger := otelzap.Ctx(rc.Ctx)

	check, err := CheckPrivileges(rc)
	if err != nil {
		return err
	}

	if !check.IsRoot {
		logger.Error("Insufficient privilege",
			zap.String("operation", operation),
			zap.String("username", check.Username),
			zap.Int("uid", check.UserID))
		return iaso_err.NewPrivilegeError(operation)
	}

	logger.Debug("Privilege gate passed", zap.String("operation", operation))
	return nil
}

func checkSudoAccess(rc *iaso_io.RuntimeContext) bool {
	logger := otelzap.Ctx(rc.Ctx)

	// Passwordless sudo first.
	cmd := exec.CommandContext(rc.Ctx, "sudo", "-n", "true")
	if err := cmd.Run(); err == nil {
		logger.Debug("User has passwordless sudo access")
		return true
	}

	currentUser, err := user.Current()
	if err != nil {
		return false
	}
	groups, err := currentUser.GroupIds()
	if err != nil {
		return false
	}

	sudoGroups := []string{"sudo", "wheel", "admin"}
	for _, groupID := range groups {
		group, err := user.LookupGroupId(groupID)
		if err != nil {
			continue
		}
		for _, sudoGroup := range sudoGroups {
			if group.Name == sudoGroup {
				logger.Debug("User is in sudo group", zap.String("group", sudoGroup))
				return true
			}
		}
	}
	return false
}

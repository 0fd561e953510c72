/*
main.go
*/
package main

import (
	"github.com/CodeMonkeyCybersecurity/iaso/cmd"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/shared"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/telemetry"
)

func main() {
	logger.InitializeWithFallback()

	if err := telemetry.Init(shared.IasoID); err != nil {
		logger.L().Warn("Telemetry disabled: " + err.Error())
	}

	cmd.Execute()
}

// sam2seg-gui 用桌面表单收集参数, 然后在终端中完成交互选择
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/getcharzp/sam2-tools/internal/app"
	"github.com/getcharzp/sam2-tools/internal/config"
	"github.com/getcharzp/sam2-tools/internal/form"
	"github.com/getcharzp/sam2-tools/internal/form/tkform"
	"github.com/getcharzp/sam2-tools/internal/logging"
	"github.com/getcharzp/sam2-tools/internal/tui"
)

func main() {
	logger := logging.New(slog.LevelInfo)
	if err := run(logger); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	path, err := config.DefaultPath()
	if err != nil {
		return err
	}
	store, created, err := config.LoadOrCreate(path)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(os.Stderr, "Config file is ready at: %s\n", store.Path())
	}

	req, ok := tkform.Show(form.Defaults(), logger)
	if !ok {
		return nil
	}

	runner := &app.Runner{
		Store:         store,
		Logger:        logger,
		Out:           os.Stdout,
		OpenPredictor: app.OpenSAM2,
		Interact:      tui.Interact,
	}
	_, err = runner.Run(req)
	return err
}

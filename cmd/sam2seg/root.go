package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/getcharzp/sam2-tools/internal/app"
	"github.com/getcharzp/sam2-tools/internal/config"
	"github.com/getcharzp/sam2-tools/internal/logging"
	"github.com/getcharzp/sam2-tools/internal/tui"
)

type options struct {
	input      string
	output     string
	numMasks   int
	model      int
	box        string
	pfm        bool
	overlay    bool
	points     bool
	auto       bool
	showConfig bool
	configFile string
	verbose    bool
}

// request 由命令行参数生成请求, 模式优先级为 points > auto > box
func (o options) request() (app.Request, error) {
	req := app.Request{
		Input:    o.input,
		Output:   o.output,
		Mode:     app.ModeBox,
		NumMasks: o.numMasks,
		ModelID:  o.model,
		PFM:      o.pfm,
		Overlay:  o.overlay,
	}
	switch {
	case o.points:
		req.Mode = app.ModePoints
	case o.auto:
		req.Mode = app.ModeAuto
	case o.box != "":
		b, err := app.ParseBox(o.box)
		if err != nil {
			return app.Request{}, err
		}
		req.Box = &b
	}
	return req, req.Validate()
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:          "sam2seg",
		Short:        "Interactive SAM2 segmentation for a single image",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(o, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.input, "input", "i", "", "input image path")
	f.StringVarP(&o.output, "output", "o", "", "output folder (defaults to the input image folder)")
	f.IntVarP(&o.numMasks, "num-masks", "n", 3, "number of masks to keep in box/auto mode")
	f.IntVarP(&o.model, "model", "m", 1, "model id: 1=Large 2=Base+ 3=Small 4=Tiny")
	f.StringVarP(&o.box, "box", "s", "", "box prompt x1,y1,x2,y2 (skips interactive selection)")
	f.BoolVar(&o.pfm, "pfm", false, "save masks as PFM float images instead of PNG")
	f.BoolVar(&o.overlay, "overlay", false, "also save a translucent overlay of the best mask")
	f.BoolVar(&o.points, "points", false, "interactive point mode")
	f.BoolVar(&o.auto, "auto", false, "automatic mask generation")
	f.BoolVar(&o.showConfig, "config", false, "create the config file if missing and print its path")
	f.StringVar(&o.configFile, "config-file", "", "config file path (defaults to the XDG config dir)")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func run(o options, stdout, stderr io.Writer) error {
	logger := logging.NewWithWriter(stderr, logging.Level(o.verbose))

	path := o.configFile
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	// 参数错误或输入图片不存在时不创建配置文件
	var req app.Request
	if !o.showConfig {
		r, err := o.request()
		if err != nil {
			return err
		}
		if _, err := os.Stat(r.Input); err != nil {
			return &app.InputError{Field: "input", Reason: err.Error()}
		}
		req = r
	}

	store, created, err := config.LoadOrCreate(path)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(stderr, "Config file is ready at: %s\n", store.Path())
		logger.Debug("config created", "path", store.Path())
	}
	if o.showConfig {
		fmt.Fprintln(stdout, store.Path())
		return nil
	}

	runner := &app.Runner{
		Store:         store,
		Logger:        logger,
		Out:           stdout,
		OpenPredictor: app.OpenSAM2,
		Interact:      tui.Interact,
	}
	report, err := runner.Run(req)
	if err != nil {
		return err
	}
	logger.Debug("run finished", "run", report.RunID, "saved", len(report.Saved), "cancelled", report.Cancelled)
	return nil
}

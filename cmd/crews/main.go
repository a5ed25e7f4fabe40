// crews 不依赖数据库，直接从名单表格生成分队方案
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/calendar"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/roster"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/seed"
)

// options 先从环境变量读取默认值，再由命令行参数覆盖
type options struct {
	Season struct {
		Start string `env:"START" envDefault:"May 1"`
		End   string `env:"END" envDefault:"August 31"`
	} `envPrefix:"SEASON_"`
	Annealing struct {
		InitialTemperature float64 `env:"INITIAL_TEMPERATURE" envDefault:"10000"`
		CoolingRate        float64 `env:"COOLING_RATE" envDefault:"0.9999"`
		FinalTemperature   float64 `env:"FINAL_TEMPERATURE" envDefault:"0.0001"`
		Seed               int64   `env:"SEED" envDefault:"0"`
		LogEvery           int     `env:"LOG_EVERY" envDefault:"0"`
		Restarts           int     `env:"RESTARTS" envDefault:"1"`
	} `envPrefix:"ANNEALING_"`

	In  string
	Out string
}

func parseOptions(args []string) (*options, error) {
	opts := &options{}
	if err := env.Parse(opts); err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet("crews", flag.ContinueOnError)
	fs.StringVar(&opts.In, "in", "", "名单表格路径")
	fs.StringVar(&opts.Out, "out", "", "输出路径，为空时输出到标准输出")
	fs.StringVar(&opts.Season.Start, "season-start", opts.Season.Start, "赛季开始日期")
	fs.StringVar(&opts.Season.End, "season-end", opts.Season.End, "赛季结束日期")
	fs.Float64Var(&opts.Annealing.InitialTemperature, "initial-temperature", opts.Annealing.InitialTemperature, "初始温度")
	fs.Float64Var(&opts.Annealing.CoolingRate, "cooling-rate", opts.Annealing.CoolingRate, "冷却系数")
	fs.Float64Var(&opts.Annealing.FinalTemperature, "final-temperature", opts.Annealing.FinalTemperature, "终止温度")
	fs.Int64Var(&opts.Annealing.Seed, "seed", opts.Annealing.Seed, "随机数种子，为 0 时使用当前时间")
	fs.IntVar(&opts.Annealing.LogEvery, "log-every", opts.Annealing.LogEvery, "每隔多少次迭代打印一次进度")
	fs.IntVar(&opts.Annealing.Restarts, "restarts", opts.Annealing.Restarts, "独立退火的次数")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if opts.In == "" {
		return nil, errors.New("必须通过 -in 指定名单表格")
	}
	if opts.Annealing.Seed == 0 {
		opts.Annealing.Seed = time.Now().UnixNano()
	}

	return opts, nil
}

func run(ctx context.Context, opts *options, stdout io.Writer) (*scheduler.Result, error) {
	season, err := calendar.NewSeason(opts.Season.Start, opts.Season.End)
	if err != nil {
		return nil, err
	}

	in, err := os.Open(opts.In)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	records, err := seed.ReadRangers(in)
	if err != nil {
		return nil, err
	}

	rs, err := roster.New(season, records)
	if err != nil {
		return nil, err
	}

	s, err := scheduler.New(&scheduler.Parameters{
		InitialTemperature: opts.Annealing.InitialTemperature,
		CoolingRate:        opts.Annealing.CoolingRate,
		FinalTemperature:   opts.Annealing.FinalTemperature,
		Seed:               opts.Annealing.Seed,
		LogEvery:           opts.Annealing.LogEvery,
	}, rs)
	if err != nil {
		return nil, err
	}

	res, err := s.ScheduleBest(ctx, max(opts.Annealing.Restarts, 1))
	if err != nil {
		return nil, err
	}

	out := stdout
	if opts.Out != "" {
		f, err := os.Create(opts.Out)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		out = f
	}

	if err := seed.WriteAssignment(out, records, res.Assignment); err != nil {
		return nil, fmt.Errorf("写出分队方案失败: %w", err)
	}

	return res, nil
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logger.Error("参数错误", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := run(ctx, opts, os.Stdout)
	if err != nil {
		logger.Error("生成分队方案失败", "error", err)
		os.Exit(1)
	}

	b := res.Breakdown
	logger.Info("分队方案已生成",
		"seed", res.Seed,
		"cost", res.Cost,
		"iterations", res.Iterations,
		"preference", b.Preference,
		"understaffing", b.Understaffing,
		"mixedCrew", b.MixedCrew,
		"certification", b.Certification,
		"experience", b.Experience,
	)
}

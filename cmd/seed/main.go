package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/calendar"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/repository"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/seed"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var randomSeed int64
	var dataPath string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机排班员, 2: 插入带随机队员的分队计划, 3: 导入真实名单)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量（操作 2 中为队员数量）")
	flag.Int64Var(&randomSeed, "seed", 0, "随机数种子，为 0 时使用当前时间")
	flag.StringVar(&dataPath, "data", "", "真实名单的路径，为空时使用配置中的路径")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", "error", err)
		os.Exit(1)
	}

	season, err := calendar.NewSeason(cfg.Season.Start, cfg.Season.End)
	if err != nil {
		logger.Error("配置中的赛季不合法", "error", err)
		os.Exit(1)
	}

	if randomSeed == 0 {
		randomSeed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(randomSeed))

	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	switch op {
	case 0:
		logger.Error("未指定操作")
	case 1:
		if n <= 0 {
			logger.Error("请输入合法的排班员数量")
			return
		}

		inserted := 0
		for i := 0; i < n; i++ {
			user, err := utils.GenerateRandomPlanner(rng, cfg.Seed.Planner.Password, cfg.Email.UserDomain)
			if err != nil {
				logger.Error("无法生成随机排班员", "error", err)
				continue
			}
			if err := repo.CreateUser(user); err != nil {
				logger.Error("无法插入排班员", "username", user.Username, "error", err)
				continue
			}
			inserted++
		}

		logger.Info("插入排班员成功", "count", inserted)
	case 2:
		if n < 4 {
			logger.Error("队员数量至少为 4")
			return
		}

		plan := utils.GenerateRandomCrewPlan(rng, season)
		if err := repo.CreateCrewPlan(plan); err != nil {
			logger.Error("无法插入分队计划", "error", err)
			return
		}

		rangers := utils.GenerateRandomRangers(rng, n, season)
		for _, ranger := range rangers {
			ranger.CrewPlanID = plan.ID
		}
		if err := repo.CreateRangers(rangers); err != nil {
			logger.Error("无法插入队员", "error", err)
			return
		}

		logger.Info("插入分队计划成功", "crewPlanID", plan.ID, "rangers", len(rangers), "seed", randomSeed)
	case 3:
		if dataPath == "" {
			dataPath = cfg.Seed.DataPath
		}
		if _, err := seed.SeedRealData(repo, dataPath, season); err != nil {
			logger.Error("无法导入真实名单", "path", dataPath, "error", err)
		}
	default:
		logger.Error("指定的操作非法")
	}
}

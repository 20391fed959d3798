package app

import (
	"gorm.io/gorm"

	"github.com/peakline/aeo-backend/internal/data/repos"
	"github.com/peakline/aeo-backend/internal/pkg/logger"
)

type Repos struct {
	Jobs            repos.JobRepo
	EngineAuthority repos.EngineAuthorityRepo
	EngineOutage    repos.EngineOutageRepo
	EngineResults   repos.EngineResultRepo
	Scores          repos.ScoreResultRepo
	ScoringConfigs  repos.ScoringConfigRepo
	Alerts          repos.AlertRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Jobs:            repos.NewJobRepo(db, log),
		EngineAuthority: repos.NewEngineAuthorityRepo(db, log),
		EngineOutage:    repos.NewEngineOutageRepo(db, log),
		EngineResults:   repos.NewEngineResultRepo(db, log),
		Scores:          repos.NewScoreResultRepo(db, log),
		ScoringConfigs:  repos.NewScoringConfigRepo(db, log),
		Alerts:          repos.NewAlertRepo(db, log),
	}
}

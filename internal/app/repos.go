package app

import (
	"github.com/yungbote/coursegen-backend/internal/data/docstore"
	"github.com/yungbote/coursegen-backend/internal/data/repos"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type Repos struct {
	Upload repos.UploadRepo
	Course repos.CourseRepo
	Module repos.ModuleRepo
}

func wireRepos(store docstore.Store, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Upload: repos.NewUploadRepo(store, log),
		Course: repos.NewCourseRepo(store, log),
		Module: repos.NewModuleRepo(store, log),
	}
}

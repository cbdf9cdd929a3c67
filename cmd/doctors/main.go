package main

import (
	"medisched/internal/doctors/handler"
	"medisched/internal/doctors/repository"
	"medisched/internal/doctors/service"
	"medisched/internal/doctors/validator"
	timeslotrepo "medisched/internal/timeslots/repository"
	triageconfig "medisched/internal/triage/config"
	triagehandler "medisched/internal/triage/handler"
	triageservice "medisched/internal/triage/service"
	"medisched/pkg/app"
	"medisched/pkg/config"
)

const ServiceName = "doctors"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Doctors service")
	doctorService, triageService := initServices(cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewDoctorHandler(doctorService, cfg.Log),
		triagehandler.NewTriageHandler(triageService, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config) (service.DoctorService, triageservice.TriageService) {
	doctorService := service.NewDoctorService(
		repository.NewMongoDoctorRepository(cfg),
		validator.NewDoctorValidator(cfg.Log),
		cfg,
	)

	rules, err := triageconfig.Load(cfg.TriageConfigPath)
	if err != nil {
		cfg.Log.Fatal("Failed to load triage rules", "path", cfg.TriageConfigPath, "error", err)
	}
	cfg.Log.Info("Triage rules loaded",
		"symptoms", len(rules.Symptoms),
		"weighted_symptoms", len(rules.Matrix),
		"threshold", rules.Threshold,
	)

	triageService := triageservice.NewTriageService(rules, doctorService, timeslotrepo.NewMongoTimeSlotRepository(cfg), cfg)
	return doctorService, triageService
}

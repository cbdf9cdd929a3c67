package main

import (
	doctorrepo "medisched/internal/doctors/repository"
	doctorservice "medisched/internal/doctors/service"
	doctorvalidator "medisched/internal/doctors/validator"
	"medisched/internal/timeslots/handler"
	"medisched/internal/timeslots/repository"
	"medisched/internal/timeslots/service"
	"medisched/internal/timeslots/validator"
	"medisched/pkg/app"
	"medisched/pkg/calendar"
	"medisched/pkg/config"
	mongodb "medisched/pkg/db/mongo"
	"medisched/pkg/metrics"
)

const ServiceName = "time-slots"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Time Slots service")
	serverApp := app.NewApplication(cfg)
	timeSlotService := initServices(cfg, serverApp)

	serverApp.SetApp(handler.NewTimeSlotHandler(timeSlotService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config, serverApp *app.Application) service.TimeSlotService {
	catalog := calendar.DefaultSlotCatalog()

	doctors := doctorservice.NewDoctorService(
		doctorrepo.NewMongoDoctorRepository(cfg),
		doctorvalidator.NewDoctorValidator(cfg.Log),
		cfg,
	)

	return service.NewTimeSlotService(
		repository.NewMongoTimeSlotRepository(cfg),
		validator.NewTimeSlotValidator(catalog, cfg.Clock(), cfg.Log),
		doctors,
		mongodb.NewLockStore(cfg.Client.Mongo.Database(cfg.MongoDatabaseName)),
		catalog,
		metrics.NewSchedulingMetrics(serverApp.Registry()),
		cfg,
	)
}

package main

import (
	"context"
	"errors"
	"medisched/internal/appointments/events"
	"medisched/internal/appointments/handler"
	"medisched/internal/appointments/repository"
	"medisched/internal/appointments/service"
	"medisched/internal/appointments/validator"
	doctorrepo "medisched/internal/doctors/repository"
	doctorservice "medisched/internal/doctors/service"
	doctorvalidator "medisched/internal/doctors/validator"
	timeslotrepo "medisched/internal/timeslots/repository"
	timeslotservice "medisched/internal/timeslots/service"
	timeslotvalidator "medisched/internal/timeslots/validator"
	"medisched/pkg/app"
	"medisched/pkg/calendar"
	"medisched/pkg/config"
	mongodb "medisched/pkg/db/mongo"
	"medisched/pkg/kafka"
	kafka_config "medisched/pkg/kafka/config"
	kafka_middleware "medisched/pkg/kafka/middleware"
	"medisched/pkg/metrics"
)

const ServiceName = "appointments"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Appointments service")
	serverApp := app.NewApplication(cfg)

	kafkaCfg := loadKafka(cfg)
	var kafkaMetrics *metrics.KafkaMetrics
	if kafkaCfg != nil && kafkaCfg.EnableMiddleware {
		kafkaMetrics = metrics.NewKafkaMetrics(serverApp.Registry())
	}

	producer := newProducer(cfg, kafkaCfg, kafkaMetrics, serverApp)
	appointmentService := initServices(cfg, serverApp, producer)
	startPrescriptionConsumer(cfg, kafkaCfg, kafkaMetrics, serverApp, appointmentService)

	serverApp.SetApp(handler.NewAppointmentHandler(appointmentService, cfg.WebhookSecret, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config, serverApp *app.Application, producer kafka.Publisher) service.AppointmentService {
	catalog := calendar.DefaultSlotCatalog()
	schedulingMetrics := metrics.NewSchedulingMetrics(serverApp.Registry())

	doctors := doctorservice.NewDoctorService(
		doctorrepo.NewMongoDoctorRepository(cfg),
		doctorvalidator.NewDoctorValidator(cfg.Log),
		cfg,
	)
	availability := timeslotservice.NewTimeSlotService(
		timeslotrepo.NewMongoTimeSlotRepository(cfg),
		timeslotvalidator.NewTimeSlotValidator(catalog, cfg.Clock(), cfg.Log),
		doctors,
		mongodb.NewLockStore(cfg.Client.Mongo.Database(cfg.MongoDatabaseName)),
		catalog,
		schedulingMetrics,
		cfg,
	)

	var publisher service.EventPublisher = events.Noop{}
	if producer != nil {
		publisher = events.NewPublisher(producer, ServiceName)
	}

	appointmentService := service.NewAppointmentService(
		repository.NewMongoAppointmentRepository(cfg),
		validator.NewAppointmentValidator(catalog, cfg.Log),
		doctors,
		availability,
		publisher,
		catalog,
		schedulingMetrics,
		cfg,
	)

	cfg.Log.Info("Appointment service initialized", "database", cfg.MongoDatabaseName, "events", producer != nil)
	return appointmentService
}

func loadKafka(cfg *config.Config) *kafka_config.Config {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled, appointment events are not published")
		return nil
	}
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)
	return kafkaCfg
}

func newProducer(cfg *config.Config, kafkaCfg *kafka_config.Config, m *metrics.KafkaMetrics, serverApp *app.Application) kafka.Publisher {
	if kafkaCfg == nil {
		return nil
	}
	topic := cfg.AppointmentEventsTopic
	producer, err := kafka.NewProducer(kafkaCfg, topic, kafkaCfg.DLQTopic(topic), cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "topic", topic, "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducer(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducer(m))
	}
	serverApp.OnShutdown(func(context.Context) error {
		return producer.Close()
	})
	return producer
}

// startPrescriptionConsumer completes appointments as prescriptions are
// written. The signed webhook covers deployments without Kafka.
func startPrescriptionConsumer(cfg *config.Config, kafkaCfg *kafka_config.Config, m *metrics.KafkaMetrics, serverApp *app.Application, completer events.Completer) {
	if kafkaCfg == nil {
		return
	}
	topic := cfg.PrescriptionEventsTopic
	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		topic,
		cfg.PrescriptionGroupID,
		kafkaCfg.DLQTopic(topic),
		events.NewPrescriptionHandler(completer, cfg.Log),
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "topic", topic, "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumer(cfg.Log))
		consumer.Use(kafka_middleware.MetricsConsumer(m))
	}

	serverApp.AddWorker(consumer.Start)
	serverApp.OnShutdown(func(context.Context) error {
		if err := consumer.Close(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
}

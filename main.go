package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"homehub/internal/aggregation"
	"homehub/internal/automation"
	"homehub/internal/config"
	"homehub/internal/currentvalue"
	"homehub/internal/db"
	"homehub/internal/dispatch"
	"homehub/internal/ingest"
	"homehub/internal/logging"
	"homehub/internal/metrics"
	hubmqtt "homehub/internal/mqtt"
	hubredis "homehub/internal/redis"
	"homehub/internal/sweeper"
	"homehub/internal/taskqueue"
	"homehub/internal/web"

	"github.com/pion/mdns/v2"
	"go.uber.org/zap"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	metrics.Init()

	dbConn, err := db.NewDB(cfg.DBURL)
	if err != nil {
		logger.Fatal("failed to connect to db", zap.Error(err))
	}
	defer dbConn.Close()

	redisClient := hubredis.NewRedisClient(cfg.RedisAddr)

	mqttClient, err := hubmqtt.NewMQTTClient(cfg.MQTTBroker, cfg.MQTTClientID)
	if err != nil {
		logger.Fatal("failed to connect to mqtt", zap.Error(err))
	}

	queue := taskqueue.NewQueue(cfg.RedisAddr, logger)
	worker := taskqueue.NewWorker(cfg.RedisAddr, cfg.AsynqConcurrency, dbConn, mqttClient, logger)
	if err := worker.Start(); err != nil {
		logger.Fatal("failed to start task workers", zap.Error(err))
	}

	counterStore := aggregation.NewRedisCounterStore(redisClient)
	pipeline := aggregation.NewPipeline(counterStore, dbConn, dbConn, queue, logger)

	valueStore := currentvalue.NewRedisStore(redisClient)
	dispatcher := dispatch.NewMQTTDispatcher(mqttClient, logger)
	engine := automation.NewEngine(dbConn, valueStore, dbConn, dispatcher, queue, logger)

	ingestSvc := ingest.NewService(pipeline, engine, valueStore, cfg.IngestTimeout, logger)

	if err := hubmqtt.SubscribeSamples(mqttClient, ingestSvc, logger); err != nil {
		logger.Fatal("failed to subscribe to samples", zap.Error(err))
	}

	sweep := sweeper.New(redisClient, logger)
	if err := sweep.Start(); err != nil {
		logger.Fatal("failed to start sweeper", zap.Error(err))
	}

	webServer := web.NewWebServer(dbConn, ingestSvc, cfg.JWTSecret)
	go func() {
		if err := webServer.Start(fmt.Sprintf(":%d", cfg.HTTPPort)); err != nil {
			logger.Fatal("web server stopped", zap.Error(err))
		}
	}()

	go startMDNSServer(cfg.MDNSLocalName, logger)

	logger.Info("homehub started", zap.Int("http_port", cfg.HTTPPort))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	mqttClient.Disconnect(250)
	sweep.Stop()
	worker.Shutdown()
	queue.Close()
	logger.Info("shutdown complete")
}

// startMDNSServer advertises the hub on the LAN so devices can find it.
func startMDNSServer(localName string, logger *zap.Logger) {
	addr4, err := net.ResolveUDPAddr("udp4", mdns.DefaultAddressIPv4)
	if err != nil {
		logger.Warn("failed to resolve udp4 address for mdns", zap.Error(err))
		return
	}

	addr6, err := net.ResolveUDPAddr("udp6", mdns.DefaultAddressIPv6)
	if err != nil {
		logger.Warn("failed to resolve udp6 address for mdns", zap.Error(err))
		return
	}

	l4, err := net.ListenUDP("udp4", addr4)
	if err != nil {
		logger.Warn("failed to listen on udp4 for mdns", zap.Error(err))
		return
	}

	l6, err := net.ListenUDP("udp6", addr6)
	if err != nil {
		logger.Warn("failed to listen on udp6 for mdns", zap.Error(err))
		return
	}

	if _, err := mdns.Server(ipv4.NewPacketConn(l4), ipv6.NewPacketConn(l6), &mdns.Config{
		LocalNames: []string{localName},
	}); err != nil {
		logger.Warn("failed to start mdns server", zap.Error(err))
	}
}

package cmd

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/rishav/order-gateway/internal/config"
	"github.com/rishav/order-gateway/internal/exchange"
	"github.com/rishav/order-gateway/internal/faketime"
	"github.com/rishav/order-gateway/internal/gateway"
	"github.com/rishav/order-gateway/internal/metrics"
	"github.com/rishav/order-gateway/internal/mockgen"
	"github.com/rishav/order-gateway/internal/statssink"
)

const drainTimeout = 10 * time.Second

var demoGenerators int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the gateway against a mock exchange",
	Long: "Run starts the gateway wired to a mock exchange, useful for demos and\n" +
		"local testing. --demo-generators spawns that many mock order generators\n" +
		"against the gateway's own ingress, each with a distinct id prefix.",
	RunE: runGateway,
}

func init() {
	runCmd.Flags().IntVar(&demoGenerators, "demo-generators", 0, "number of mock order generators to run against this gateway")
	rootCmd.AddCommand(runCmd)
}

func runGateway(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log.Printf("gatewayd: loaded %s", cfg)

	sink, err := statssink.NewFile(statsPath)
	if err != nil {
		return err
	}
	defer sink.Close()

	registry := prometheus.NewRegistry()
	collector := metrics.New(registry)

	clock := faketime.Real{}

	gw, err := gateway.New(cfg, gateway.Deps{
		Clock:        clock,
		Sink:         sink,
		Metrics:      collector,
		AuditLogPath: auditLogPath,
	})
	if err != nil {
		return err
	}

	mockExchange := exchange.NewMock(gw.ResponseHandler(), 20*time.Millisecond, clock)
	defer mockExchange.Shutdown()
	gw.AttachExchange(mockExchange)

	gw.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := gw.Shutdown(ctx); err != nil {
			log.Printf("gatewayd: shutdown error: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: metricsAddr, Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("gatewayd: metrics server error: %v", err)
		}
	}()
	defer metricsServer.Close()

	var generators []*mockgen.Generator
	for i := 0; i < demoGenerators; i++ {
		g := mockgen.New(gw.Ingress(), uint8(i+1), 100*time.Millisecond)
		g.Start()
		generators = append(generators, g)
	}
	defer func() {
		for _, g := range generators {
			g.Shutdown()
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("gatewayd: running, press Ctrl+C to stop")
	<-ctx.Done()
	log.Println("gatewayd: received shutdown signal")
	return nil
}

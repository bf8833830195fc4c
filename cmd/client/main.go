package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sessiongraph/application/ephemeral"
	appsession "sessiongraph/application/session"
	"sessiongraph/domain/graph"
	"sessiongraph/domain/protocol"
	ws "sessiongraph/infrastructure/websocket"
	"sessiongraph/pkg/clock"
	"sessiongraph/pkg/config"
	"sessiongraph/pkg/observability"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger setup failed: %v", err)
	}
	defer logger.Sync()

	clk := clock.New()
	metrics := observability.NewCollector(cfg.MetricsNamespace)

	manager := ws.NewManager(ws.Options{
		URL:             cfg.BackendURL,
		SessionID:       cfg.SessionID,
		ReconnectDelay:  cfg.ReconnectDelay,
		FlushRetryDelay: cfg.FlushRetryDelay,
		WriteTimeout:    cfg.WriteTimeout,
		PongTimeout:     cfg.PongTimeout,
		PingInterval:    cfg.PingInterval,
	}, ws.NewDialer(), clk, logger, metrics)

	reconciler := graph.NewReconciler(logger, clk, metrics)

	tracker := ephemeral.NewTracker(ephemeral.Options{
		CalloutLifetime:     cfg.CalloutLifetime,
		CalloutFadeWindow:   cfg.CalloutFadeWindow,
		SweepInterval:       cfg.CalloutSweepInterval,
		BloomDuration:       cfg.BloomDuration,
		BreakthroughDismiss: cfg.BreakthroughDismiss,
		CorrectionDismiss:   cfg.CorrectionDismiss,
	}, clk, logger)
	defer tracker.Close()

	controller := appsession.NewController(appsession.Options{
		ProcessingTimeout: cfg.ProcessingTimeout,
	}, manager, reconciler, tracker, clk, logger)
	controller.Attach()
	defer controller.Detach()

	// Terminal output for the interactive loop; everything else goes
	// through the structured logger.
	manager.Subscribe(protocol.TypePartResponse, func(m protocol.Message) {
		if msg, ok := m.(protocol.PartResponse); ok {
			fmt.Printf("[%s] %s\n", msg.Name, msg.Content)
		}
	})
	manager.Subscribe(protocol.TypeAssistantMessage, func(m protocol.Message) {
		if msg, ok := m.(protocol.AssistantMessage); ok {
			fmt.Println(msg.Content)
		}
	})
	manager.Subscribe(protocol.TypeNodeAnswer, func(m protocol.Message) {
		if msg, ok := m.(protocol.NodeAnswer); ok {
			fmt.Printf("[%s] %s\n", msg.NodeID, msg.Answer)
		}
	})
	manager.Subscribe(protocol.TypeDeliveryFailed, func(protocol.Message) {
		fmt.Fprintln(os.Stderr, "! message could not be delivered, please resend")
	})

	manager.Connect()
	defer manager.Disconnect()

	go readInput(controller, logger)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info("Shutting down",
		zap.Int("userTurns", controller.UserTurns()),
		zap.Int("nodes", reconciler.Snapshot().NodeCount()),
	)
}

// readInput forwards stdin lines as user messages. "/ask <nodeId>
// <question>" becomes a node query and "/ingest <text>" a bulk ingest
// instead.
func readInput(controller *appsession.Controller, logger *zap.Logger) {
	fmt.Println(controller.Placeholder())
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var err error
		if rest, ok := strings.CutPrefix(line, "/ask "); ok {
			nodeID, question, found := strings.Cut(rest, " ")
			if !found {
				fmt.Fprintln(os.Stderr, "usage: /ask <nodeId> <question>")
				continue
			}
			err = controller.QueryNode(graph.NodeID(nodeID), question)
		} else if rest, ok := strings.CutPrefix(line, "/ingest "); ok {
			err = controller.BulkIngest(rest)
		} else {
			err = controller.SendUserMessage(line)
		}
		if err != nil {
			logger.Warn("Command rejected", zap.Error(err))
		}
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/ld2450/pkg/ld2450"
	"github.com/Thermoquad/ld2450/pkg/publish"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var publishOpts = trackOptions{validate: true, empty: true}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish tracked targets to an MQTT broker",
	Long: `Decode tracking reports and publish each group as JSON to an MQTT topic.

The broker is given as a URL:
  mqtt://host:1883/prefix    plain TCP
  mqtts://host:8883/prefix   TLS

A path on the URL is prepended to --topic. Empty groups are published too so
subscribers see targets leave the field of view.

Example message:
  {"session":"...","time":"...","targets":[{"slot":0,"x":782,"y":1713,"speed":-16,"resolution":320,"valid":true}]}`,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().String("broker", "", "MQTT broker URL (mqtt:// or mqtts://)")
	publishCmd.Flags().String("topic", "ld2450/targets", "MQTT topic")
	publishCmd.Flags().String("client-id", "", "MQTT client ID (default derived from the machine ID)")
	publishCmd.Flags().Float64Var(&publishOpts.rate, "rate", 5, "Maximum messages per second (0 = every report)")
	publishCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9450)")
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sessionID := uuid.NewString()
	pub, err := publish.New(cfg.MQTT, sessionID)
	if err != nil {
		return err
	}
	if err := pub.Connect(); err != nil {
		return err
	}
	defer pub.Close()
	log.Info("connected to broker", zap.String("broker", cfg.MQTT.Broker), zap.String("topic", pub.Topic))

	observers, stopMetrics, err := startMetrics()
	if err != nil {
		return err
	}
	defer stopMetrics()

	s, err := openSession(observers...)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("LD2450 - MQTT Publisher\n")
	fmt.Printf("Connection: %s\n", s.info)
	fmt.Printf("Topic: %s\n", pub.Topic)
	fmt.Printf("Session: %s\n", sessionID)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	published := 0
	err = trackGroups(ctx, s, publishOpts, func(g *ld2450.TrackedObjectGroup) error {
		if err := pub.Publish(g); err != nil {
			// The client reconnects on its own; keep tracking
			log.Warn("publish failed", zap.Error(err))
			return nil
		}
		published++
		return nil
	})
	log.Info("publisher stopped", zap.Int("published", published))
	return err
}

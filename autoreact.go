// Copyright 2016 Florin Pățan
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command autoreact
//
// This is a Slack bot that automatically reacts to messages from configured
// users, optionally only in some channels.
//
// To run this you need to set the ` AUTOREACT_SLACK_BOT_TOKEN ` environment
// variable (or put it in a .env file) with the Slack bot token and that's it.
// Rules are kept in autoreact_data.json unless AUTOREACT_GCP_PROJECT is set,
// in which case they live in Cloud Datastore.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/datastore"
	"cloud.google.com/go/trace"
	"github.com/nlopes/slack"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/gopheracademy/autoreact/bot"
	"github.com/gopheracademy/autoreact/config"
	"github.com/gopheracademy/autoreact/handlers"
	"github.com/gopheracademy/autoreact/rules"
	"github.com/gopheracademy/autoreact/status"
)

var botVersion = "HEAD"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		storage     rules.Storage
		traceClient *trace.Client
	)
	if cfg.GCPProject != "" {
		dsClient, err := datastore.NewClient(ctx, cfg.GCPProject)
		if err != nil {
			log.Fatalf("creating datastore client: %v", err)
		}
		defer dsClient.Close()
		storage = rules.NewGCPStorage(dsClient)

		traceClient, err = trace.NewClient(ctx, cfg.GCPProject)
		if err != nil {
			log.Printf("tracing disabled: %v\n", err)
			traceClient = nil
		}
		log.Printf("Storing rules in datastore project %s\n", cfg.GCPProject)
	} else {
		storage = rules.NewFileStorage(cfg.DataFile)
		log.Printf("Storing rules in %s\n", cfg.DataFile)
	}

	store, err := rules.New(ctx, storage)
	if err != nil {
		log.Fatalf("refusing to start, fix or move the stored rules first: %v", err)
	}
	log.Printf("Loaded %d auto-react rules\n", store.Len())

	slackBotAPI := slack.New(cfg.SlackToken)

	var limiter *rate.Limiter
	if cfg.ReactionsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.ReactionsPerSecond), 1)
	}

	commands := handlers.ProcessLinear(
		handlers.AutoReact(cfg.Prefix, store, slackBotAPI, log.Printf),
		handlers.BotVersion(cfg.Prefix+"version", botVersion),
	)
	b := bot.NewBot(slackBotAPI, traceClient, store, commands, limiter, cfg.DevMode, log.Printf)
	if err := b.Init(ctx); err != nil {
		log.Fatal(err)
	}

	rtm := slackBotAPI.NewRTM()
	go rtm.ManageConnection()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer rtm.Disconnect()
		return b.Run(ctx, rtm.IncomingEvents)
	})

	if cfg.HTTPAddr != "" {
		srv := &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: status.NewRouter(store, log.Printf),
		}
		g.Go(func() error {
			log.Printf("Serving status on %s\n", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return srv.Shutdown(context.Background())
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}

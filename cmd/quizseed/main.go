// Command quizseed imports quizzes from YAML files into the configured
// database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

func main() {
	author := flag.String("author", "quizseed", "created_by recorded on imported quizzes")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: quizseed [-author name] quiz.yaml...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatal("db open failed", "error", err)
	}
	defer dbh.Close()
	svc := quiz.NewService(quiz.NewSQLStore(dbh, syncx.NewEventRepo(dbh, cfg.SiteID)))

	failed := 0
	for _, path := range flag.Args() {
		if err := importFile(ctx, svc, path, *author); err != nil {
			log.Error("import failed", "file", path, "error", err)
			failed++
			continue
		}
		log.Info("imported", "file", path)
	}
	if failed > 0 {
		log.Sync()
		os.Exit(1)
	}
}

func importFile(ctx context.Context, svc *quiz.Service, path, author string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	qf, err := quiz.ParseYAML(f)
	if err != nil {
		return err
	}
	q, err := svc.Import(ctx, qf, author)
	if err != nil {
		return err
	}
	fmt.Printf("%s: quiz %d %q with %d questions\n", path, q.ID, q.Title, len(q.Questions))
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/aqp/internal/aggregates"
	"github.com/odyssey-erp/aqp/internal/app"
	"github.com/odyssey-erp/aqp/internal/monitors"
	"github.com/odyssey-erp/aqp/internal/readings"
	"github.com/odyssey-erp/aqp/internal/regions"
)

const seedDays = 3

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	fmt.Println("→ Applying schema...")
	if err := applySchema(ctx, pool, getenv("SCHEMA_FILE", "migrations/0001_init.sql")); err != nil {
		log.Fatalf("apply schema: %v", err)
	}

	services := app.NewServices(cfg, pool, redisClient, app.NewLogger(cfg))

	fmt.Println("→ Seeding regions...")
	if err := seedRegions(ctx, services.Regions); err != nil {
		log.Fatalf("seed regions: %v", err)
	}
	fmt.Println("→ Seeding monitors...")
	if err := seedMonitors(ctx, services.Monitors); err != nil {
		log.Fatalf("seed monitors: %v", err)
	}

	end := time.Now().UTC().Truncate(time.Hour)
	start := end.AddDate(0, 0, -seedDays)
	fmt.Println("→ Seeding readings...")
	count, err := seedReadings(ctx, services.Readings, start, end)
	if err != nil {
		log.Fatalf("seed readings: %v", err)
	}
	fmt.Printf("  %d readings\n", count)

	fmt.Println("→ Aggregating...")
	opts := aggregates.RangeOptions{UpdateExisting: true}
	hourly, err := services.Aggregates.AggregateForRange(ctx, start, end, aggregates.Hourly, opts)
	if err != nil {
		log.Fatalf("hourly aggregates: %v", err)
	}
	daily, err := services.Aggregates.AggregateForRange(ctx, start, end, aggregates.Daily, opts)
	if err != nil {
		log.Fatalf("daily aggregates: %v", err)
	}
	fmt.Printf("  %d hourly, %d daily\n", hourly.Written(), daily.Written())

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func applySchema(ctx context.Context, pool *pgxpool.Pool, path string) error {
	ddl, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, string(ddl))
	return err
}

func seedRegions(ctx context.Context, svc *regions.Service) error {
	if _, _, err := svc.EnsureRoot(ctx); err != nil {
		return err
	}
	inputs := []regions.CreateInput{
		{Name: "Kenya", RegionName: "Kenya", Parent: regions.RootName, Type: "Country", Timezone: "Africa/Nairobi"},
		{Name: "Nairobi", RegionName: "Nairobi", Parent: "Kenya", Type: "City", Timezone: "Africa/Nairobi"},
		{Name: "Mombasa", RegionName: "Mombasa", Parent: "Kenya", Type: "City", Timezone: "Africa/Nairobi"},
		{Name: "Uganda", RegionName: "Uganda", Parent: regions.RootName, Type: "Country", Timezone: "Africa/Kampala"},
		{Name: "Kampala", RegionName: "Kampala", Parent: "Uganda", Type: "City", Timezone: "Africa/Kampala"},
	}
	for _, in := range inputs {
		if _, err := svc.Create(ctx, in); err != nil && !errors.Is(err, regions.ErrDuplicate) {
			return fmt.Errorf("%s: %w", in.Name, err)
		}
	}
	return nil
}

var seedMonitorSet = []monitors.CreateInput{
	{Name: "AM-NBO-01", MonitorName: "Nairobi CBD", Region: "Nairobi", Country: "Kenya", City: "Nairobi", SerialNo: "SN-1001"},
	{Name: "AM-NBO-02", MonitorName: "Westlands", Region: "Nairobi", Country: "Kenya", City: "Nairobi", SerialNo: "SN-1002"},
	{Name: "AM-MBA-01", MonitorName: "Mombasa Port", Region: "Mombasa", Country: "Kenya", City: "Mombasa", SerialNo: "SN-2001"},
	{Name: "AM-KLA-01", MonitorName: "Kampala Central", Region: "Kampala", Country: "Uganda", City: "Kampala", SerialNo: "SN-3001"},
}

func seedMonitors(ctx context.Context, svc *monitors.Service) error {
	since := time.Now().UTC().AddDate(0, 0, -seedDays-1)
	for _, in := range seedMonitorSet {
		in.OnlineSince = &since
		if _, err := svc.Create(ctx, in); err != nil && !errors.Is(err, monitors.ErrDuplicate) {
			return fmt.Errorf("%s: %w", in.Name, err)
		}
	}
	return nil
}

// seedReadings writes one reading per monitor every 15 minutes following a
// daily cycle that peaks in the morning and evening rush hours.
func seedReadings(ctx context.Context, svc *readings.Service, start, end time.Time) (int, error) {
	count := 0
	for i, m := range seedMonitorSet {
		base := 12 + float64(i)*6
		for dt := start.Add(15 * time.Minute); !dt.After(end); dt = dt.Add(15 * time.Minute) {
			hour := float64(dt.Hour()) + float64(dt.Minute())/60
			pm := base + 10*math.Max(0, math.Sin((hour-5)*math.Pi/7)) + 4*math.Sin(hour*math.Pi/3)
			pm = math.Max(0, math.Round(pm*10)/10)
			_, err := svc.Create(ctx, readings.CreateInput{Monitor: m.Name, ReadingDT: dt, PM25: pm})
			switch {
			case err == nil:
				count++
			case errors.Is(err, readings.ErrDuplicateReading):
			default:
				return count, fmt.Errorf("%s at %s: %w", m.Name, dt.Format(time.DateTime), err)
			}
		}
	}
	return count, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

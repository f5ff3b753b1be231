package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Juanex7890/senalmaq2-sub000/internal/modules/orders"
)

func main() {
	_ = godotenv.Load()

	driver := flag.String("driver", envOr("STORE_DRIVER", "mysql"), "Store driver (mysql, dynamodb)")
	dsn := flag.String("dsn", os.Getenv("DB_DSN"), "MySQL DSN")
	region := flag.String("region", envOr("AWS_REGION", "us-east-1"), "AWS region")
	endpoint := flag.String("endpoint", os.Getenv("DYNAMODB_ENDPOINT"), "DynamoDB endpoint override")
	table := flag.String("table", envOr("DYNAMODB_TABLE", "orders"), "DynamoDB table")
	index := flag.String("index", envOr("DYNAMODB_CODE_INDEX", "verification_code-index"), "DynamoDB verification code index")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch *driver {
	case "mysql":
		if *dsn == "" {
			log.Fatal("DB_DSN (or -dsn) is required")
		}
		db, err := gorm.Open(mysql.Open(*dsn), &gorm.Config{})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := orders.NewGormStore(db).Migrate(ctx); err != nil {
			log.Fatalf("Failed to migrate: %v", err)
		}
		fmt.Println("✓ payment_orders table is up to date")

	case "dynamodb":
		client, err := orders.NewDynamoDBClient(ctx, *region, *endpoint)
		if err != nil {
			log.Fatalf("Failed to configure DynamoDB: %v", err)
		}
		created, err := orders.CreateDynamoTable(ctx, client, *table, *index)
		if err != nil {
			log.Fatalf("Failed to create table: %v", err)
		}
		if created {
			fmt.Printf("✓ table %s created\n", *table)
		} else {
			fmt.Printf("✓ table %s already exists\n", *table)
		}

	default:
		log.Fatalf("unknown driver %q", *driver)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

//go:build integration

package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// startContainer starts image and returns the host:port mapped to port.
// The container is terminated when the test ends.
func startContainer(t *testing.T, image, port string, waitFor wait.Strategy) string {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        image,
		ExposedPorts: []string{port + "/tcp"},
		WaitingFor:   waitFor,
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start %s container: %v", image, err)
	}
	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	return host + ":" + mapped.Port()
}

// StartRedis runs a Redis container and returns a client connected to it.
func StartRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := startContainer(t, "redis:7-alpine", "6379", wait.ForLog("Ready to accept connections"))

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() {
		client.Close()
	})
	return client
}

// StartMongo runs a MongoDB container and returns a database on it.
func StartMongo(t *testing.T) *mongo.Database {
	t.Helper()

	addr := startContainer(t, "mongo:7", "27017", wait.ForLog("Waiting for connections").WithStartupTimeout(2*time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(fmt.Sprintf("mongodb://%s", addr)))
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	t.Cleanup(func() {
		client.Disconnect(context.Background())
	})

	return client.Database("workout_test")
}

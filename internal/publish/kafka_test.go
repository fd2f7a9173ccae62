package publish

import (
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/DarkZek/christchurch-bus-mural/internal/models"
)

func TestKafkaPublish(t *testing.T) {
	mc, err := kafka.NewMockCluster(1)
	if err != nil {
		t.Fatalf("NewMockCluster: %v", err)
	}
	defer mc.Close()

	const topic = "buses"
	pub, err := NewKafka(mc.BootstrapServers(), topic)
	if err != nil {
		t.Fatalf("NewKafka: %v", err)
	}

	snap := models.Snapshot{
		Buses: []models.BusInfo{{
			Position: models.VehiclePosition{Latitude: -43.53, Longitude: 172.63},
			Code:     "3", Name: "Airport | Sumner", Color: "00AEEF",
		}},
		LastUpdated: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
	}
	pub.Publish(snap)
	pub.Close()

	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": mc.BootstrapServers(),
		"group.id":          "mural-test",
		"auto.offset.reset": "earliest",
	})
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	defer consumer.Close()

	if err := consumer.Subscribe(topic, nil); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	msg, err := consumer.ReadMessage(15 * time.Second)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	if string(msg.Key) != MessageKey {
		t.Errorf("key = %q, want %q", msg.Key, MessageKey)
	}
	want, err := Encode(snap)
	if err != nil {
		t.Fatal(err)
	}
	if string(msg.Value) != string(want) {
		t.Errorf("value = %s, want %s", msg.Value, want)
	}
}

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/imu_visualizer/internal/imu"
	"github.com/relabs-tech/imu_visualizer/internal/orientation"
)

// SubscribeConsole prints everything a visualizer publishes on topics.
func SubscribeConsole(client mqtt.Client, topics MQTTTopics, out io.Writer) error {
	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{topics.Orientation, func(_ mqtt.Client, msg mqtt.Message) {
			var st orientation.State
			if err := json.Unmarshal(msg.Payload(), &st); err != nil {
				log.Printf("console: orientation unmarshal error: %v", err)
				return
			}
			fmt.Fprintf(out, "[POSE]  ROLL=%7.2f  PITCH=%7.2f  YAW=%7.2f\n", st.Roll, st.Pitch, st.Yaw)
		}},
		{topics.Sample, func(_ mqtt.Client, msg mqtt.Message) {
			var s imu.Sample
			if err := json.Unmarshal(msg.Payload(), &s); err != nil {
				log.Printf("console: sample unmarshal error: %v", err)
				return
			}
			fmt.Fprintf(out,
				"[IMU]   ax=%6.2f ay=%6.2f az=%6.2f  gx=%7.1f gy=%7.1f gz=%7.1f\n",
				s.Accel.X, s.Accel.Y, s.Accel.Z, s.Gyro.X, s.Gyro.Y, s.Gyro.Z,
			)
		}},
		{topics.Rate, func(_ mqtt.Client, msg mqtt.Message) {
			var r RatePayload
			if err := json.Unmarshal(msg.Payload(), &r); err != nil {
				log.Printf("console: rate unmarshal error: %v", err)
				return
			}
			fmt.Fprintf(out, "[RATE]  %.1f Hz\n", r.Hz)
		}},
		{topics.DecodeError, func(_ mqtt.Client, msg mqtt.Message) {
			var e ErrorPayload
			if err := json.Unmarshal(msg.Payload(), &e); err != nil {
				log.Printf("console: decode error unmarshal error: %v", err)
				return
			}
			fmt.Fprintf(out, "[ERR]   %s\n", e.Error)
		}},
	}

	for _, sub := range subs {
		if sub.topic == "" {
			continue
		}
		token := client.Subscribe(sub.topic, 0, sub.handler)
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Printf("console: subscribed to %s", sub.topic)
	}
	return nil
}

// RunConsoleMQTT prints fused output from the broker until ctx is done.
func RunConsoleMQTT(ctx context.Context, broker, clientID string, topics MQTTTopics, out io.Writer) error {
	client, err := ConnectMQTT(NewMQTTClientOptions(broker, clientID))
	if err != nil {
		return err
	}
	log.Printf("console: connected to MQTT broker at %s", broker)
	defer client.Disconnect(250)

	if err := SubscribeConsole(client, topics, out); err != nil {
		return err
	}

	<-ctx.Done()
	log.Println("console: shutting down")
	return nil
}

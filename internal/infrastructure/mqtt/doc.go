// Package mqtt provides the MQTT client that exposes the heat pump to home
// automation systems.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Retained state publishing and JSON payloads
//   - Subscriptions that survive reconnects
//   - Last Will and Testament on the node status topic
//
// # Topics
//
// Every topic lives below <prefix>/<node>, see Topics. Entity values are
// retained on state/<entity_id>; writes arrive on set/<entity_id>.
//
// # Usage
//
//	topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix, cfg.Node.ID)
//	client, err := mqtt.Connect(cfg.MQTT, topics)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(topics.State("tv"), update, true)
package mqtt

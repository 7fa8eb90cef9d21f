package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, branchID uuid.UUID, role string) *Client {
	return &Client{
		hub:      hub,
		branchID: branchID,
		role:     role,
		send:     make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branchID := uuid.New()
	client := mockClient(hub, branchID, "CASHIER")

	// Register client
	hub.register <- client

	// Give hub time to process
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[branchID] == nil {
		t.Fatal("branch room not created")
	}
	if !hub.rooms[branchID][client] {
		t.Fatal("client not registered in branch room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branchID := uuid.New()
	client := mockClient(hub, branchID, "CASHIER")

	// Register client
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	// Unregister client
	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	// Room should be cleaned up when empty
	if hub.rooms[branchID] != nil {
		t.Fatal("branch room not cleaned up after last client unregistered")
	}
}

func TestBroadcastToSingleBranch(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branch1 := uuid.New()
	branch2 := uuid.New()

	client1 := mockClient(hub, branch1, "CASHIER")
	client2 := mockClient(hub, branch2, "CASHIER")

	// Register both clients
	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	// Broadcast to branch1 only
	testPayload := json.RawMessage(`{"order_id":"test-123"}`)
	event := Event{
		Type:    "order.created",
		Payload: testPayload,
	}
	hub.BroadcastToBranch(branch1, event)

	// Check client1 receives the message
	select {
	case msg := <-client1.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != "order.created" {
			t.Errorf("expected type 'order.created', got '%s'", received.Type)
		}
		if string(received.Payload) != string(testPayload) {
			t.Errorf("expected payload '%s', got '%s'", testPayload, received.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client1 did not receive message")
	}

	// Check client2 does NOT receive the message
	select {
	case <-client2.send:
		t.Fatal("client2 should not have received message for different branch")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message received
	}
}

func TestBroadcastToRoleFiltersClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branchID := uuid.New()
	kitchen := mockClient(hub, branchID, "KITCHEN")
	cashier := mockClient(hub, branchID, "CASHIER")

	hub.register <- kitchen
	hub.register <- cashier
	time.Sleep(10 * time.Millisecond)

	event := Event{
		Type:    "order.created",
		Payload: json.RawMessage(`{"order_id":"abc"}`),
	}
	hub.BroadcastToRole(branchID, "KITCHEN", event)

	select {
	case msg := <-kitchen.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if received.Type != "order.created" {
			t.Errorf("wrong event type: %s", received.Type)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("kitchen client did not receive role broadcast")
	}

	select {
	case <-cashier.send:
		t.Fatal("cashier should not receive a KITCHEN-only broadcast")
	case <-time.After(50 * time.Millisecond):
		// Expected
	}
}

func TestBroadcastToMultipleClientsInSameBranch(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branchID := uuid.New()
	client1 := mockClient(hub, branchID, "CASHIER")
	client2 := mockClient(hub, branchID, "WAITER")
	client3 := mockClient(hub, branchID, "KITCHEN")

	// Register all clients to same branch
	hub.register <- client1
	hub.register <- client2
	hub.register <- client3
	time.Sleep(10 * time.Millisecond)

	// Broadcast event
	testPayload := json.RawMessage(`{"status":"SERVED"}`)
	event := Event{
		Type:    "order.updated",
		Payload: testPayload,
	}
	hub.BroadcastToBranch(branchID, event)

	// All three clients should receive the message
	clients := []*Client{client1, client2, client3}
	for i, client := range clients {
		select {
		case msg := <-client.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != "order.updated" {
				t.Errorf("client%d: expected type 'order.updated', got '%s'", i+1, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}
}

func TestEmitToBranchMarshalsPayload(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branchID := uuid.New()
	client := mockClient(hub, branchID, "CASHIER")
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.EmitToBranch(branchID, "table.updated", map[string]string{"status": "AVAILABLE"})

	select {
	case msg := <-client.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if received.Type != "table.updated" {
			t.Errorf("wrong event type: %s", received.Type)
		}
		if string(received.Payload) != `{"status":"AVAILABLE"}` {
			t.Errorf("wrong payload: %s", received.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client did not receive emitted event")
	}
}

func TestHubMultipleBranchesIsolation(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branch1 := uuid.New()
	branch2 := uuid.New()
	branch3 := uuid.New()

	// Create 2 clients per branch
	clients := map[uuid.UUID][]*Client{
		branch1: {mockClient(hub, branch1, "CASHIER"), mockClient(hub, branch1, "KITCHEN")},
		branch2: {mockClient(hub, branch2, "CASHIER"), mockClient(hub, branch2, "KITCHEN")},
		branch3: {mockClient(hub, branch3, "CASHIER"), mockClient(hub, branch3, "KITCHEN")},
	}

	// Register all clients
	for _, clientList := range clients {
		for _, client := range clientList {
			hub.register <- client
		}
	}
	time.Sleep(10 * time.Millisecond)

	// Broadcast to branch2 only
	event := Event{
		Type:    "shift.updated",
		Payload: json.RawMessage(`{"branch_id":"` + branch2.String() + `"}`),
	}
	hub.BroadcastToBranch(branch2, event)

	// Only branch2 clients should receive
	for branchID, clientList := range clients {
		for i, client := range clientList {
			select {
			case msg := <-client.send:
				if branchID != branch2 {
					t.Fatalf("branch %s client %d should not receive message", branchID, i)
				}
				var received Event
				if err := json.Unmarshal(msg, &received); err != nil {
					t.Fatalf("unmarshal error: %v", err)
				}
				if received.Type != "shift.updated" {
					t.Errorf("wrong event type: %s", received.Type)
				}
			case <-time.After(50 * time.Millisecond):
				if branchID == branch2 {
					t.Fatalf("branch2 client %d should have received message", i)
				}
				// Expected for other branches
			}
		}
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branchID := uuid.New()
	client1 := mockClient(hub, branchID, "CASHIER")
	client2 := mockClient(hub, branchID, "KITCHEN")

	// Register both clients
	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[branchID]) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(hub.rooms[branchID]))
	}
	hub.mu.RUnlock()

	// Unregister first client
	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[branchID]) != 1 {
		t.Fatalf("expected 1 client after first unregister, got %d", len(hub.rooms[branchID]))
	}
	hub.mu.RUnlock()

	// Unregister second client
	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if hub.rooms[branchID] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
	hub.mu.RUnlock()
}

func TestBroadcastToNonExistentBranch(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Create a client for branch1
	branch1 := uuid.New()
	client1 := mockClient(hub, branch1, "CASHIER")
	hub.register <- client1
	time.Sleep(10 * time.Millisecond)

	// Broadcast to branch2 (doesn't exist)
	branch2 := uuid.New()
	event := Event{
		Type:    "order.created",
		Payload: json.RawMessage(`{"test":"data"}`),
	}
	hub.BroadcastToBranch(branch2, event)

	// client1 should NOT receive anything
	select {
	case <-client1.send:
		t.Fatal("client should not receive message for different branch")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message
	}
}

package socket_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Marga-Ghale/ora-workspaces/internal/socket"
)

func decode(data []byte) socket.Message {
	var msg socket.Message
	ExpectWithOffset(1, json.Unmarshal(data, &msg)).To(Succeed())
	return msg
}

var _ = Describe("Hub", func() {
	var (
		hub         *socket.Hub
		cancel      context.CancelFunc
		broadcaster *socket.Broadcaster
		allowed     map[string]string
		authorize   socket.RoomAuthorizer
		connected   int
	)

	connect := func(userID string) *socket.Client {
		client := socket.NewClient(hub, userID, nil, authorize)
		Expect(hub.Register(client)).To(BeTrue())
		connected++
		Eventually(hub.GetConnectedClientsCount).Should(Equal(connected))
		return client
	}

	subscribe := func(client *socket.Client, workspaceID string) socket.Message {
		frame, _ := json.Marshal(socket.ClientMessage{Action: "subscribe", Room: socket.WorkspaceRoom(workspaceID)})
		client.HandleMessage(frame)
		var data []byte
		Eventually(client.Send).Should(Receive(&data))
		return decode(data)
	}

	BeforeEach(func() {
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		connected = 0
		hub = socket.NewHub(nil)
		go hub.Run(ctx)
		broadcaster = socket.NewBroadcaster(hub)

		allowed = map[string]string{"alice": "ws-1", "bob": "ws-1", "mallory": "ws-2"}
		authorize = func(_ context.Context, userID, workspaceID string) error {
			if allowed[userID] != workspaceID {
				return errors.New("forbidden")
			}
			return nil
		}
	})

	AfterEach(func() {
		cancel()
	})

	It("joins a workspace room only after authorization succeeds", func() {
		alice := connect("alice")
		mallory := connect("mallory")

		Expect(subscribe(alice, "ws-1").Type).To(Equal(socket.MessageAck))

		denied := subscribe(mallory, "ws-1")
		Expect(denied.Type).To(Equal(socket.MessageError))
		Expect(denied.Payload).To(HaveKeyWithValue("error", "forbidden"))
		Expect(hub.GetRoomClients(socket.WorkspaceRoom("ws-1"))).To(Equal(1))
	})

	It("rejects rooms that are not workspace rooms", func() {
		alice := connect("alice")
		frame, _ := json.Marshal(socket.ClientMessage{Action: "subscribe", Room: "project:123"})
		alice.HandleMessage(frame)

		var data []byte
		Eventually(alice.Send).Should(Receive(&data))
		Expect(decode(data).Payload).To(HaveKeyWithValue("error", "unknown room"))
	})

	It("fans workspace events out to subscribers of that workspace only", func() {
		alice := connect("alice")
		mallory := connect("mallory")
		subscribe(alice, "ws-1")
		subscribe(mallory, "ws-2")

		broadcaster.BroadcastToWorkspace("ws-1", socket.MessageTaskCreated, map[string]interface{}{"taskId": "t-1"})

		var data []byte
		Eventually(alice.Send).Should(Receive(&data))
		msg := decode(data)
		Expect(msg.Type).To(Equal(socket.MessageTaskCreated))
		Expect(msg.Payload).To(HaveKeyWithValue("taskId", "t-1"))
		Expect(msg.Payload).To(HaveKeyWithValue("workspaceId", "ws-1"))
		Consistently(mallory.Send).ShouldNot(Receive())
	})

	It("detaches a removed member after delivering the removal", func() {
		alice := connect("alice")
		bob := connect("bob")
		subscribe(alice, "ws-1")
		subscribe(bob, "ws-1")

		broadcaster.BroadcastToWorkspace("ws-1", socket.MessageMemberRemoved, map[string]interface{}{"userId": "bob"})
		broadcaster.DetachUser("ws-1", "bob")

		var data []byte
		Eventually(bob.Send).Should(Receive(&data))
		Expect(decode(data).Type).To(Equal(socket.MessageMemberRemoved))
		Expect(hub.GetRoomClients(socket.WorkspaceRoom("ws-1"))).To(Equal(1))

		broadcaster.BroadcastToWorkspace("ws-1", socket.MessageProjectCreated, nil)
		Eventually(alice.Send).Should(Receive())
		Eventually(alice.Send).Should(Receive())
		Consistently(bob.Send).ShouldNot(Receive())
	})

	It("closes the room of a deleted workspace", func() {
		alice := connect("alice")
		subscribe(alice, "ws-1")

		broadcaster.CloseWorkspace("ws-1")
		Expect(hub.GetRoomClients(socket.WorkspaceRoom("ws-1"))).To(BeZero())
	})

	It("closes the send channel when a client unregisters", func() {
		alice := connect("alice")
		hub.Unregister(alice)

		Eventually(alice.Send).Should(BeClosed())
		Eventually(hub.GetConnectedClientsCount).Should(BeZero())
	})

	It("answers ping with pong", func() {
		alice := connect("alice")
		alice.HandleMessage([]byte(`{"action":"ping"}`))

		var data []byte
		Eventually(alice.Send).Should(Receive(&data))
		Expect(decode(data).Type).To(Equal(socket.MessagePong))
	})

	It("drops clients that have been silent since the cutoff", func() {
		alice := connect("alice")
		bob := connect("bob")
		subscribe(alice, "ws-1")

		time.Sleep(2 * time.Millisecond)
		cutoff := time.Now()
		time.Sleep(2 * time.Millisecond)
		bob.HandleMessage([]byte(`{"action":"ping"}`))
		Eventually(bob.Send).Should(Receive())

		Expect(hub.PruneIdle(cutoff)).To(Equal(1))
		Eventually(alice.Send).Should(BeClosed())
		Expect(hub.GetConnectedClientsCount()).To(Equal(1))
		Expect(hub.GetRoomClients(socket.WorkspaceRoom("ws-1"))).To(BeZero())
	})
})

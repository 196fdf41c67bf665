package peer_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/network"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
)

func Test_CRUD(t *testing.T) {
	type table struct {
		name  string
		peers []peer.Peer
	}

	tt := []table{
		{
			name:  "basic",
			peers: []peer.Peer{{Host: "host1"}, {Host: "host2"}, {Host: "host3"}},
		},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			ps := peer.NewPeerSet()

			for _, peer := range tst.peers {
				ps.Add(peer)
			}

			if ps.Add(tst.peers[0]) {
				t.Fatalf("Test %s:\tShould not add the same peer twice.", tst.name)
			}

			peers := ps.Copy("")
			if len(peers) != len(tst.peers) {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers))
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			peers = ps.Copy("host2")
			if len(peers) != len(tst.peers)-1 {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers)-1)
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			ps.Remove(tst.peers[0])
			peers = ps.Copy("")
			if len(peers) != len(tst.peers)-1 {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers)-1)
				t.Fatalf("Test %s:\tShould remove the peer.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}

func receive(t *testing.T, inbound <-chan network.Inbound) (network.Message, network.Peer) {
	select {
	case in := <-inbound:
		msg, err := network.Decode(in.Data)
		if err != nil {
			t.Fatalf("Should be able to decode the message: %s", err)
		}
		return msg, in.Peer

	case <-time.After(5 * time.Second):
		t.Fatalf("Should receive a message before the deadline.")
	}

	return network.Message{}, nil
}

func Test_Exchange(t *testing.T) {
	ev := func(v string, args ...any) { t.Logf(v, args...) }

	inboundA := make(chan network.Inbound, 10)
	serverA := peer.NewServer("a", nil, inboundA, ev)

	mux := http.NewServeMux()
	mux.HandleFunc(peer.Route, func(w http.ResponseWriter, r *http.Request) {
		if _, err := serverA.Accept(w, r); err != nil {
			t.Logf("accept: %s", err)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	inboundB := make(chan network.Inbound, 10)
	serverB := peer.NewServer("b", nil, inboundB, ev)

	host := strings.TrimPrefix(srv.URL, "http://")
	if _, err := serverB.Connect(context.Background(), host); err != nil {
		t.Fatalf("Should be able to connect to the peer: %s", err)
	}

	if known := serverB.KnownPeers(); len(known) != 1 || known[0].Host != host {
		t.Logf("got: %v", known)
		t.Fatalf("Should record the known peer.")
	}

	serverB.Broadcast(network.NewPing(9))

	msg, from := receive(t, inboundA)
	if msg.Kind != network.KindPing || msg.Nonce != 9 {
		t.Logf("got: %s", msg)
		t.Logf("exp: Ping(9)")
		t.Fatalf("Should receive the broadcast.")
	}

	from.Write(network.NewPong("9"))

	msg, _ = receive(t, inboundB)
	if msg.Kind != network.KindPong || msg.Text != "9" {
		t.Logf("got: %s", msg)
		t.Logf("exp: Pong(9)")
		t.Fatalf("Should receive the reply on the originating connection.")
	}

	if n := len(serverA.Connections()); n != 1 {
		t.Fatalf("Should have one connection, got %d.", n)
	}

	serverB.Shutdown()
	serverA.Shutdown()

	if n := len(serverB.Connections()); n != 0 {
		t.Fatalf("Should have no connections after shutdown, got %d.", n)
	}
}

func Test_ConnectSelf(t *testing.T) {
	server := peer.NewServer("localhost:9080", nil, make(chan network.Inbound), nil)

	if _, err := server.Connect(context.Background(), "localhost:9080"); err == nil {
		t.Fatalf("Should refuse to connect to itself.")
	}
}

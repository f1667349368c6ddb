package realtime

import (
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKind EventKind
		wantErr  bool
	}{
		{
			name:     "join",
			raw:      `{"type":"join","data":"u1"}`,
			wantKind: KindJoin,
		},
		{
			name:     "join conversation",
			raw:      `{"type":"join-conversation","data":"c1"}`,
			wantKind: KindJoinConversation,
		},
		{
			name:     "leave conversation",
			raw:      `{"type":"leave-conversation","data":"c1"}`,
			wantKind: KindLeaveConversation,
		},
		{
			name:     "typing",
			raw:      `{"type":"typing","data":{"conversationId":"c1","userId":"u1","isTyping":true}}`,
			wantKind: KindTyping,
		},
		{
			name:     "join stream",
			raw:      `{"type":"join-stream","data":"s1"}`,
			wantKind: KindJoinStream,
		},
		{
			name:     "leave stream",
			raw:      `{"type":"leave-stream","data":"s1"}`,
			wantKind: KindLeaveStream,
		},
		{
			name:     "stream chat",
			raw:      `{"type":"stream-chat","data":{"streamId":"s1","message":{"body":"hi"}}}`,
			wantKind: KindStreamChat,
		},
		{
			name:     "stream reaction",
			raw:      `{"type":"stream-reaction","data":{"streamId":"s1","emoji":"🔥","userId":"u1"}}`,
			wantKind: KindStreamReaction,
		},
		{
			name:    "not json",
			raw:     `nope`,
			wantErr: true,
		},
		{
			name:    "unknown type",
			raw:     `{"type":"teleport","data":"x"}`,
			wantErr: true,
		},
		{
			name:    "join with empty id",
			raw:     `{"type":"join","data":""}`,
			wantErr: true,
		},
		{
			name:    "join with object payload",
			raw:     `{"type":"join","data":{"userId":"u1"}}`,
			wantErr: true,
		},
		{
			name:    "typing missing conversation",
			raw:     `{"type":"typing","data":{"userId":"u1","isTyping":true}}`,
			wantErr: true,
		},
		{
			name:    "stream chat missing message",
			raw:     `{"type":"stream-chat","data":{"streamId":"s1"}}`,
			wantErr: true,
		},
		{
			name:    "stream reaction missing emoji",
			raw:     `{"type":"stream-reaction","data":{"streamId":"s1","userId":"u1"}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode([]byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Decode() = %v, want error", ev)
				}
				if !errors.Is(err, ErrMalformedEvent) {
					t.Errorf("Decode() error = %v, want ErrMalformedEvent", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if ev.Kind() != tt.wantKind {
				t.Errorf("Kind() = %s, want %s", ev.Kind(), tt.wantKind)
			}
		})
	}
}

func TestDecode_TypingPayload(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"typing","data":{"conversationId":"c9","userId":"u3","isTyping":false}}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	p, ok := ev.(Typing)
	if !ok {
		t.Fatalf("Decode() = %T, want Typing", ev)
	}
	if p.ConversationID != "c9" || p.UserID != "u3" || p.IsTyping {
		t.Errorf("Typing = %+v", p)
	}
}

func TestEncode_Envelope(t *testing.T) {
	frame, err := Encode(OutReaction, map[string]string{"emoji": "❤️"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := `{"type":"reaction","data":{"emoji":"❤️"}}`
	if string(frame) != want {
		t.Errorf("Encode() = %s, want %s", frame, want)
	}
}

package payload

import (
	"errors"
	"testing"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
)

func int64Ptr(v int64) *int64 { return &v }

func fixedBatch(sessions ...string) *domain.BatchSchedule {
	return &domain.BatchSchedule{
		ID:               "batch-1",
		CompanyID:        "company-1",
		CampaignID:       "campaign-1",
		Status:           domain.BatchStatusPending,
		RunAt:            1000,
		SelectedSessions: sessions,
		DeliverySettings: domain.DeliverySettings{
			IntervalRandomMin: int64Ptr(20000),
			IntervalRandomMax: int64Ptr(20000),
		},
	}
}

func contacts(n int) []Recipient {
	out := make([]Recipient, 0, n)
	for i := 0; i < n; i++ {
		c := &domain.Contact{
			ID:        string(rune('a' + i)),
			FirstName: "Contato",
			LastName:  string(rune('A' + i)),
			Phone:     "+55 11 9000-000" + string(rune('0'+i)),
		}
		out = append(out, RecipientFromContact(c))
	}
	return out
}

func TestBuildRoundRobinAndPacing(t *testing.T) {
	t.Parallel()

	templates := []*domain.MessageTemplate{
		{ID: "t0", Name: "first", Content: "Oi {{first_name}}", ContentType: domain.ContentText},
		{ID: "t1", Name: "second", Content: "Olá {{full_name}}", ContentType: domain.ContentText},
	}

	result, err := NewBuilder("", nil).Build(Input{
		Batch:      fixedBatch("s0", "s1"),
		Campaign:   &domain.Campaign{ID: "campaign-1", Name: "Black Friday"},
		Templates:  templates,
		Recipients: contacts(3),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(result.Payloads) != 3 {
		t.Fatalf("payloads = %d, want 3", len(result.Payloads))
	}

	wantRunAt := []int64{1000, 21000, 41000}
	wantTemplate := []string{"t0", "t1", "t0"}
	wantSession := []string{"s0", "s1", "s0"}
	for i, p := range result.Payloads {
		if p.RunAt != wantRunAt[i] {
			t.Fatalf("payload[%d].RunAt = %d, want %d", i, p.RunAt, wantRunAt[i])
		}
		if p.Metadata.TemplateID != wantTemplate[i] {
			t.Fatalf("payload[%d].TemplateID = %s, want %s", i, p.Metadata.TemplateID, wantTemplate[i])
		}
		if p.SessionID != wantSession[i] {
			t.Fatalf("payload[%d].SessionID = %s, want %s", i, p.SessionID, wantSession[i])
		}
	}

	first := result.Payloads[0]
	if first.ChatID != "551190000000@c.us" {
		t.Fatalf("ChatID = %s", first.ChatID)
	}
	if first.Content != "Oi Contato" {
		t.Fatalf("Content = %q", first.Content)
	}
	if result.Payloads[1].Content != "Olá Contato B" {
		t.Fatalf("Content = %q", result.Payloads[1].Content)
	}
	if first.Metadata.CampaignName != "Black Friday" || first.Metadata.BatchID != "batch-1" || first.Metadata.TemplateName != "first" {
		t.Fatalf("unexpected metadata: %+v", first.Metadata)
	}
	if first.Metadata.RecipientName != "Contato A" || first.Metadata.ContactID != "a" {
		t.Fatalf("unexpected recipient metadata: %+v", first.Metadata)
	}
	if first.CompanyID != "company-1" {
		t.Fatalf("CompanyID = %s", first.CompanyID)
	}
}

func TestBuildSkipsMediaWithoutURL(t *testing.T) {
	t.Parallel()

	templates := []*domain.MessageTemplate{
		{ID: "img", Content: "Veja {{first_name}}", ContentType: domain.ContentImage, Attachments: []domain.Attachment{{URL: "https://cdn.example.com/a.png", MimeType: "image/png"}}},
		{ID: "broken", Content: "sem mídia", ContentType: domain.ContentVideo},
	}

	result, err := NewBuilder("@c.us", nil).Build(Input{
		Batch:      fixedBatch("s0"),
		Templates:  templates,
		Recipients: contacts(3),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(result.Payloads) != 2 {
		t.Fatalf("payloads = %d, want 2", len(result.Payloads))
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Index != 1 || result.Skipped[0].Reason != SkipMissingMediaURL {
		t.Fatalf("skipped = %+v, want index 1 missing media", result.Skipped)
	}

	// The skipped recipient still consumes its pacing slot.
	if result.Payloads[1].RunAt != 41000 {
		t.Fatalf("third recipient RunAt = %d, want 41000", result.Payloads[1].RunAt)
	}
	media := result.Payloads[0].Media
	if media == nil || media.URL != "https://cdn.example.com/a.png" || media.Caption != "Veja Contato" {
		t.Fatalf("unexpected media payload: %+v", media)
	}
}

func TestBuildSkipsRecipientWithoutPhone(t *testing.T) {
	t.Parallel()

	result, err := NewBuilder("", nil).Build(Input{
		Batch:     fixedBatch("s0"),
		Templates: []*domain.MessageTemplate{{ID: "t0", Content: "oi"}},
		Recipients: []Recipient{
			{ContactID: "x", Name: "Sem Telefone"},
			{ContactID: "y", Phone: "5511988887777", Name: "Com Telefone"},
		},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(result.Payloads) != 1 || result.Payloads[0].Metadata.ContactID != "y" {
		t.Fatalf("payloads = %+v", result.Payloads)
	}
	if result.Payloads[0].ContentType != domain.ContentText {
		t.Fatalf("ContentType = %s, want text", result.Payloads[0].ContentType)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Reason != SkipMissingPhone {
		t.Fatalf("skipped = %+v", result.Skipped)
	}
}

func TestBuildRendersSnapshotPhone(t *testing.T) {
	t.Parallel()

	result, err := NewBuilder("", nil).Build(Input{
		Batch:     fixedBatch("s0"),
		Templates: []*domain.MessageTemplate{{ID: "t0", Content: "Seu numero: {{phone}}"}},
		Recipients: []Recipient{
			{ContactID: "snap", Phone: "5511988887777", Name: "Ana"},
			{ContactID: "live", Phone: "5511977776666", Contact: &domain.Contact{ID: "live", FirstName: "Bia"}},
		},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(result.Payloads) != 2 {
		t.Fatalf("payloads = %d, want 2", len(result.Payloads))
	}

	snapshot := result.Payloads[0]
	if snapshot.ChatID != "5511988887777@c.us" || snapshot.Content != "Seu numero: 5511988887777" {
		t.Fatalf("snapshot payload chat=%s content=%q", snapshot.ChatID, snapshot.Content)
	}
	if got := result.Payloads[1].Content; got != "Seu numero: 5511977776666" {
		t.Fatalf("live contact without phone content = %q, want snapshot phone", got)
	}
}

func TestBuildValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   Input
	}{
		{name: "missing batch", in: Input{Templates: []*domain.MessageTemplate{{ID: "t"}}}},
		{name: "no templates", in: Input{Batch: fixedBatch("s0")}},
		{name: "nil template", in: Input{Batch: fixedBatch("s0"), Templates: []*domain.MessageTemplate{nil}}},
		{name: "no sessions", in: Input{Batch: fixedBatch(), Templates: []*domain.MessageTemplate{{ID: "t"}}}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewBuilder("", nil).Build(tt.in)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("Build() error = %v, want ErrValidation", err)
			}
		})
	}
}

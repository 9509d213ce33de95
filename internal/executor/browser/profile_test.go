package browser

import "testing"

func TestParseProfile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		html     string
		wantName string
		wantErr  bool
	}{
		{
			name: "full profile",
			html: `<html><body><main>
				<h1 class="text-heading-xlarge">Jane Doe</h1>
				<div class="text-body-medium break-words">Staff Engineer at Example</div>
				<span class="text-body-small inline t-black--light break-words">Berlin, Germany</span>
			</main></body></html>`,
			wantName: "Jane Doe",
		},
		{
			name:     "bare h1 fallback",
			html:     `<html><body><h1> John Smith </h1></body></html>`,
			wantName: "John Smith",
		},
		{
			name:    "login wall",
			html:    `<html><body><form id="login"><input id="username"></form></body></html>`,
			wantErr: true,
		},
		{
			name:    "empty document",
			html:    ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseProfile(tt.html)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseProfile() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseProfile() error = %v", err)
			}
			if got.Name != tt.wantName {
				t.Fatalf("Name = %q, want %q", got.Name, tt.wantName)
			}
		})
	}
}

func TestParseProfileHeadlineAndLocation(t *testing.T) {
	t.Parallel()

	html := `<html><body><main>
		<h1>Jane Doe</h1>
		<div class="text-body-medium break-words">CTO at Acme</div>
		<span class="text-body-small inline t-black--light break-words">Oslo, Norway</span>
	</main></body></html>`

	got, err := ParseProfile(html)
	if err != nil {
		t.Fatalf("ParseProfile() error = %v", err)
	}
	if got.Headline != "CTO at Acme" {
		t.Errorf("Headline = %q, want %q", got.Headline, "CTO at Acme")
	}
	if got.Location != "Oslo, Norway" {
		t.Errorf("Location = %q, want %q", got.Location, "Oslo, Norway")
	}
}

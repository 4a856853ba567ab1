package crypto

import "testing"

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	tampered := hash[:len(hash)-1] + string(hash[len(hash)-1]^1)

	cases := []struct {
		name     string
		hash     string
		password string
		wantErr  bool
	}{
		{"match", hash, "correct horse", false},
		{"mismatch", hash, "battery staple", true},
		{"empty password", hash, "", true},
		{"tampered hash", tampered, "correct horse", true},
		{"not a hash", "plaintext", "correct horse", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckPassword(tc.hash, tc.password)
			if (err != nil) != tc.wantErr {
				t.Fatalf("CheckPassword err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestHashPasswordSalts(t *testing.T) {
	a, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	b, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if a == b {
		t.Fatalf("two hashes of the same password must differ")
	}
}

// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package prompt

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/pillarproject/btcwallet/keychain"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/term"
)

// mnemonicEntropyBits is the entropy of generated seed phrases (12 words).
const mnemonicEntropyBits = 128

// ErrNoInput is returned when the input ends before a response was given.
var ErrNoInput = errors.New("no input")

// out is where prompts are written.
var out io.Writer = os.Stdout

// readPassword reads a line from the terminal without echo.
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

// readLine reads one trimmed line from reader.  A final line without a
// newline is returned as is.
func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptList prompts the user with the given prefix, list of valid responses,
// and default list entry to use.  The function will repeat the prompt to the
// user until they enter a valid response.
func promptList(reader *bufio.Reader, prefix string, validResponses []string,
	defaultEntry string) (string, error) {

	validStrings := strings.Join(validResponses, "/")
	var prompt string
	if defaultEntry != "" {
		prompt = fmt.Sprintf("%s (%s) [%s]: ", prefix, validStrings,
			defaultEntry)
	} else {
		prompt = fmt.Sprintf("%s (%s): ", prefix, validStrings)
	}

	for {
		fmt.Fprint(out, prompt)
		reply, err := readLine(reader)
		if err != nil {
			return "", err
		}
		reply = strings.ToLower(reply)
		if reply == "" {
			reply = defaultEntry
		}

		for _, validResponse := range validResponses {
			if reply == validResponse {
				return reply, nil
			}
		}
	}
}

// promptListBool prompts the user for a boolean (yes/no) with the given prefix.
func promptListBool(reader *bufio.Reader, prefix string,
	defaultEntry string) (bool, error) {

	valid := []string{"n", "no", "y", "yes"}
	response, err := promptList(reader, prefix, valid, defaultEntry)
	if err != nil {
		return false, err
	}
	return response == "yes" || response == "y", nil
}

// PassPrompt prompts the user for a passphrase with the given prefix.  When
// confirm is set the passphrase must be entered twice.  Prompts repeat until
// a non-empty (and matching) passphrase is entered.
func PassPrompt(prefix string, confirm bool) ([]byte, error) {
	prompt := fmt.Sprintf("%s: ", prefix)
	for {
		fmt.Fprint(out, prompt)
		pass, err := readPassword()
		if err != nil {
			return nil, err
		}
		fmt.Fprint(out, "\n")
		pass = bytes.TrimSpace(pass)
		if len(pass) == 0 {
			continue
		}

		if !confirm {
			return pass, nil
		}

		fmt.Fprint(out, "Confirm passphrase: ")
		again, err := readPassword()
		if err != nil {
			return nil, err
		}
		fmt.Fprint(out, "\n")
		again = bytes.TrimSpace(again)
		if !bytes.Equal(pass, again) {
			fmt.Fprintln(out, "The entered passphrases do not match")
			continue
		}

		return pass, nil
	}
}

// PrivatePass prompts for the passphrase encrypting a new keystore.
func PrivatePass() ([]byte, error) {
	return PassPrompt("Enter the private passphrase for your new wallet",
		true)
}

// ProvidePrivPassphrase prompts for the passphrase of an existing keystore.
func ProvidePrivPassphrase() ([]byte, error) {
	return PassPrompt("Enter the private passphrase of your wallet", false)
}

// Mnemonic prompts the user whether they want to restore an existing seed
// phrase.  When the user answers no, a phrase is generated and displayed
// until the user confirms it has been written down.  All prompts repeat
// until the user enters a valid response.
func Mnemonic(reader *bufio.Reader) (string, error) {
	useExisting, err := promptListBool(reader, "Do you have an "+
		"existing seed phrase you want to use?", "no")
	if err != nil {
		return "", err
	}
	if !useExisting {
		return generateMnemonic(reader)
	}
	return ProvideMnemonic(reader)
}

// ProvideMnemonic prompts for an existing seed phrase until a valid one is
// entered.  The phrase may span several lines and ends with a blank line.
func ProvideMnemonic(reader *bufio.Reader) (string, error) {
	for {
		fmt.Fprint(out, "Enter existing seed phrase "+
			"(followed by a blank line): ")

		var phrase string
		for {
			line, err := readLine(reader)
			if errors.Is(err, ErrNoInput) && phrase != "" {
				break
			}
			if err != nil {
				return "", err
			}
			if line == "" {
				break
			}
			phrase += " " + line
		}
		phrase = collapseSpace(strings.TrimSpace(phrase))

		if !bip39.IsMnemonicValid(keychain.NormalizeMnemonic(phrase)) {
			fmt.Fprintln(out, "Invalid seed phrase.  Must be a BIP-39 "+
				"phrase with a valid checksum.")
			continue
		}

		fmt.Fprintln(out, "\nSeed phrase input successful.")
		return phrase, nil
	}
}

func generateMnemonic(reader *bufio.Reader) (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return "", err
	}
	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", err
	}
	words := strings.Fields(phrase)

	fmt.Fprintln(out, "Your wallet seed phrase is:")
	for i, word := range words {
		fmt.Fprintf(out, "%2d. %-10s", i+1, word)
		if (i+1)%4 == 0 {
			fmt.Fprint(out, "\n")
		}
	}

	fmt.Fprintln(out, "\nIMPORTANT: Keep the seed phrase in a safe place "+
		"as you\nwill NOT be able to restore your wallet without it.")
	fmt.Fprintln(out, "Please keep in mind that anyone who has access\n"+
		"to the phrase can also restore your wallet thereby\n"+
		"giving them access to all your funds.")

	for {
		fmt.Fprint(out, `Once you have stored the seed phrase in a safe `+
			`and secure location, enter "OK" to continue: `)
		confirm, err := readLine(reader)
		if err != nil {
			return "", err
		}
		if strings.Trim(confirm, `"`) == "OK" {
			break
		}
	}

	return phrase, nil
}

// collapseSpace takes a string and replaces any repeated areas of whitespace
// with a single space character.
func collapseSpace(in string) string {
	var b strings.Builder
	whiteSpace := false
	for _, c := range in {
		if unicode.IsSpace(c) {
			if !whiteSpace {
				b.WriteRune(' ')
			}
			whiteSpace = true
			continue
		}
		b.WriteRune(c)
		whiteSpace = false
	}
	return b.String()
}

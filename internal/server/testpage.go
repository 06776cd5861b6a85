package server

import (
	"fmt"
	"net/http"
)

// TestPageHandler serves a small HTML client for trying the relay by hand.
// The page owns the typing debounce: it reports isTyping=false after one
// second without keystrokes. It also drops the echo of its own chat messages
// by comparing senderConnectionId with the id from the connected event, and
// re-joins its last room after reconnecting.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPageHTML); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Room Chat Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #layout { display: flex; gap: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            width: 500px;
            padding: 10px;
            overflow-y: scroll;
            background-color: #f9f9f9;
        }
        #users { border: 1px solid #ccc; width: 180px; padding: 10px; }
        input[type="text"] { width: 200px; padding: 5px; margin-right: 10px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
        .system { color: gray; font-style: italic; }
        .own { color: blue; }
        .other { color: green; }
        #typing { height: 1.2em; color: gray; font-size: 0.9em; }
    </style>
</head>
<body>
    <h1>Room Chat Test</h1>

    <div id="status" class="status disconnected">Disconnected</div>

    <div>
        <input type="text" id="usernameInput" placeholder="Your name">
        <select id="roomSelect"></select>
        <button id="joinButton" onclick="joinRoom()" disabled>Join</button>
        <button id="leaveButton" onclick="leaveRoom()" disabled>Leave</button>
    </div>

    <div id="layout">
        <div>
            <div id="messages"></div>
            <div id="typing"></div>
            <input type="text" id="messageInput" placeholder="Type a message..." disabled>
            <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
        </div>
        <div id="users"><strong>In room</strong><ul id="userList"></ul></div>
    </div>

    <script>
        let ws = null;
        let connectionId = null;
        let currentRoom = null;
        let typingTimer = null;
        let isTyping = false;

        const messagesDiv = document.getElementById('messages');
        const messageInput = document.getElementById('messageInput');
        const usernameInput = document.getElementById('usernameInput');
        const roomSelect = document.getElementById('roomSelect');
        const statusDiv = document.getElementById('status');
        const typingDiv = document.getElementById('typing');
        const userList = document.getElementById('userList');

        function username() {
            return usernameInput.value.trim() || 'Anonymous';
        }

        function emit(event, data) {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({ event: event, data: data || {} }));
            }
        }

        function addMessage(text, cls, meta) {
            const el = document.createElement('div');
            el.className = cls;
            el.textContent = meta ? text + '  (' + meta + ')' : text;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function time(ts) {
            return ts ? new Date(ts).toLocaleTimeString() : new Date().toLocaleTimeString();
        }

        function setConnected(connected) {
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            document.getElementById('joinButton').disabled = !connected;
            setJoined(connected && currentRoom !== null);
        }

        function setJoined(joined) {
            messageInput.disabled = !joined;
            document.getElementById('sendButton').disabled = !joined;
            document.getElementById('leaveButton').disabled = !joined;
        }

        function renderRooms(rooms) {
            const selected = roomSelect.value;
            roomSelect.innerHTML = '';
            rooms.forEach(function (room) {
                const opt = document.createElement('option');
                opt.value = room.name;
                opt.textContent = room.name + ' (' + room.count + ')';
                roomSelect.appendChild(opt);
            });
            if (selected) { roomSelect.value = selected; }
        }

        function renderUsers(users) {
            userList.innerHTML = '';
            users.forEach(function (u) {
                const li = document.createElement('li');
                li.textContent = u.username;
                li.title = 'joined ' + time(u.joinedAt);
                userList.appendChild(li);
            });
        }

        const handlers = {
            'connected': function (d) {
                connectionId = d.connectionId;
                if (currentRoom) {
                    emit('join-room', { username: username(), roomName: currentRoom });
                }
            },
            'available-rooms': function (d) { renderRooms(d.rooms); },
            'rooms-list': function (d) { renderRooms(d.rooms); },
            'joined-room': function (d) {
                currentRoom = d.roomName;
                setJoined(true);
                addMessage(d.welcomeText, 'system', time(d.timestamp));
                emit('get-rooms');
            },
            'left-room': function (d) {
                currentRoom = null;
                setJoined(false);
                renderUsers([]);
                addMessage('You left ' + d.roomName, 'system', time(d.timestamp));
            },
            'user-joined': function (d) { addMessage(d.text, 'system', time(d.timestamp)); },
            'user-left': function (d) { addMessage(d.text, 'system', time(d.timestamp)); },
            'room-users': function (d) { renderUsers(d.users); },
            'chat-message': function (d) {
                if (d.senderConnectionId === connectionId) { return; }
                addMessage(d.text, 'other', d.username + ' - ' + time(d.timestamp));
            },
            'typing': function (d) {
                typingDiv.textContent = d.isTyping ? d.username + ' is typing...' : '';
            },
            'error': function (d) { addMessage('Error: ' + d.text, 'system'); }
        };

        function handleFrame(data) {
            data.split('\n').forEach(function (line) {
                if (!line) { return; }
                const env = JSON.parse(line);
                const handler = handlers[env.event];
                if (handler) { handler(env.data || {}); }
            });
        }

        function connect() {
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');
            ws.onopen = function () { setConnected(true); };
            ws.onmessage = function (event) { handleFrame(event.data); };
            ws.onclose = function () {
                setConnected(false);
                addMessage('Disconnected from server. Trying to reconnect...', 'system');
                ws = null;
                setTimeout(connect, 2000);
            };
        }

        function joinRoom() {
            emit('join-room', { username: username(), roomName: roomSelect.value });
        }

        function leaveRoom() {
            emit('leave-room');
        }

        function stopTyping() {
            if (isTyping) {
                isTyping = false;
                emit('typing', { isTyping: false });
            }
            clearTimeout(typingTimer);
        }

        function sendMessage() {
            const text = messageInput.value.trim();
            if (!text) { return; }
            emit('chat-message', { text: text });
            addMessage(text, 'own', 'You - ' + time());
            messageInput.value = '';
            stopTyping();
        }

        messageInput.addEventListener('keypress', function (e) {
            if (e.key === 'Enter') { sendMessage(); }
        });

        messageInput.addEventListener('input', function () {
            if (!isTyping) {
                isTyping = true;
                emit('typing', { isTyping: true });
            }
            clearTimeout(typingTimer);
            typingTimer = setTimeout(stopTyping, 1000);
        });

        connect();
    </script>
</body>
</html>`
